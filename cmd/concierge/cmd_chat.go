// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

func runAskCommand(_ *cobra.Command, args []string) {
	sid := sessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	result, err := sendTurn(sid, strings.Join(args, " "))
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	printReply(result)
}

func runChatCommand(_ *cobra.Command, args []string) {
	if len(args) > 0 {
		fmt.Printf("Warning: unexpected arguments ignored: %v\n", args)
	}

	sid := sessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	fmt.Printf("Concierge chat — session %s (server %s)\n", sid, serverURL)
	fmt.Println("Type 'exit' or press Ctrl-D to leave.")
	fmt.Println("---")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "exit" || text == "quit" {
			return
		}
		if text == "" {
			continue
		}

		result, err := sendTurn(sid, text)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		printReply(result)
	}
}

func runSessionCommand(_ *cobra.Command, args []string) {
	resp, err := httpClient().Get(fmt.Sprintf("%s/v1/dialog/session/%s", serverURL, args[0]))
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Server returned %d: %s", resp.StatusCode, body)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

// sendTurn posts one utterance to the dialog server.
func sendTurn(sid, text string) (*datatypes.TurnResult, error) {
	payload, err := json.Marshal(dialog.TurnRequest{SessionID: sid, Text: text})
	if err != nil {
		return nil, err
	}

	resp, err := httpClient().Post(serverURL+"/v1/dialog/turn", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dialog server unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}

	var result datatypes.TurnResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("malformed server response: %w", err)
	}
	return &result, nil
}

// printReply renders a turn result for the terminal.
func printReply(result *datatypes.TurnResult) {
	fmt.Printf("concierge> %s\n", result.Reply.Message)

	for i, r := range result.Reply.Restaurants {
		fmt.Printf("  %d. %s (%s, %s)\n", i+1, r.Name, r.CuisineType, r.City)
	}
	for _, item := range result.Reply.MenuItems {
		if len(item.Sizes) > 0 {
			var sizes []string
			for _, v := range item.Sizes {
				sizes = append(sizes, fmt.Sprintf("%s %.2f", v.Code, v.Price))
			}
			fmt.Printf("  - %s (%s)\n", item.Name, strings.Join(sizes, ", "))
		} else {
			fmt.Printf("  - %s %.2f\n", item.Name, item.Price)
		}
	}
	if len(result.Reply.Suggestions) > 0 {
		fmt.Printf("  suggestions: %s\n", strings.Join(result.Reply.Suggestions, ", "))
	}
	if o := result.Reply.Order; o != nil {
		for _, it := range o.Items {
			line := fmt.Sprintf("  %dx %s", it.Quantity, it.Name)
			if it.Size != "" {
				line += " (" + it.Size + ")"
			}
			fmt.Printf("%s = %.2f\n", line, it.LineTotal())
		}
	}
}

// httpClient returns the shared client with a sane timeout.
func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
