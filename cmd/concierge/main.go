// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command concierge is the interactive CLI for the Concierge Dialog server.
//
// Usage:
//
//	concierge ask "where can I eat pizza near Riverside"
//	concierge chat
//	concierge chat --session my-session --server http://localhost:8080
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serverURL and sessionID hold global flag values shared by subcommands.
var (
	serverURL string
	sessionID string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "concierge",
		Short: "Talk to the Concierge Dialog server",
		Long: "Concierge is a conversational food-ordering assistant. " +
			"Use 'chat' for an interactive session or 'ask' for a single turn.",
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		envOr("CONCIERGE_SERVER", "http://localhost:8080"), "Dialog server base URL")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "Session id (default: random)")

	askCmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Send a single utterance and print the reply",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Run:   runChatCommand,
	}

	sessionCmd := &cobra.Command{
		Use:   "session [id]",
		Short: "Print a session's current state",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionCommand,
	}

	rootCmd.AddCommand(askCmd, chatCmd, sessionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
