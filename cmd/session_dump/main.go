// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// session_dump inspects the Dialog service's persistent session store.
//
// The session store persists per-conversation dialogue state (pending order,
// selected restaurant, expected context) in BadgerDB between service
// restarts. This tool opens the store read-only and prints a human-readable
// summary: session ids, TTL remaining, dialogue context, cart totals, and
// any pending order.
//
// Usage:
//
//	session_dump [--path /path/to/session/dir]
//
// If --path is not given, reads DIALOG_SESSION_DIR from the environment,
// falling back to ~/.concierge/sessions/.
//
// Exit codes:
//
//	0 — success (including "empty store" which prints a message and exits 0)
//	1 — error opening or reading the database
package main

import (
	"bytes"
	"encoding/gob"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

// sessionKeyPrefix must match badger_store.go exactly.
const sessionKeyPrefix = "dialog/session/v1/"

func main() {
	pathFlag := flag.String("path", "", "Path to session BadgerDB directory (overrides DIALOG_SESSION_DIR env var)")
	flag.Parse()

	dbPath := *pathFlag
	if dbPath == "" {
		dbPath = os.Getenv("DIALOG_SESSION_DIR")
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatalf("cannot resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".concierge", "sessions")
	}

	fmt.Printf("Session store path: %s\n", dbPath)

	// Check existence before trying to open — gives a cleaner error message
	// than BadgerDB's "no such file or directory" buried in a long error.
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("Store directory does not exist. The server has not persisted any sessions yet.")
		fmt.Println("Start the dialog server with -session-dir to enable persistence.")
		os.Exit(0)
	}

	opts := dgbadger.DefaultOptions(dbPath).
		WithLogger(nil).
		WithReadOnly(true)

	db, err := dgbadger.Open(opts)
	if err != nil {
		fatalf("open BadgerDB at %s: %v", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	type entry struct {
		id        string
		expiresAt time.Time
		hasExpiry bool
		rawSize   int
		sess      *datatypes.Session
		decodeErr error
	}

	var entries []entry

	err = db.View(func(txn *dgbadger.Txn) error {
		iterOpts := dgbadger.DefaultIteratorOptions
		iterOpts.PrefetchValues = true
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())

			var e entry
			e.id = strings.TrimPrefix(key, sessionKeyPrefix)

			if expiresAt := item.ExpiresAt(); expiresAt > 0 {
				e.hasExpiry = true
				e.expiresAt = time.Unix(int64(expiresAt), 0)
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				e.decodeErr = fmt.Errorf("copy value: %w", err)
				entries = append(entries, e)
				continue
			}
			e.rawSize = len(raw)

			var sess datatypes.Session
			if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&sess); err != nil {
				e.decodeErr = fmt.Errorf("gob decode: %w", err)
			} else {
				e.sess = &sess
			}

			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		fatalf("read BadgerDB: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("\nNo sessions found.")
		fmt.Println("Either every session expired, or no conversation has happened yet.")
		os.Exit(0)
	}

	fmt.Printf("\nFound %d session%s:\n", len(entries), plural(len(entries)))
	fmt.Println(strings.Repeat("─", 80))

	for i, e := range entries {
		fmt.Printf("\n[%d] Session:  %s\n", i+1, e.id)

		if e.hasExpiry {
			remaining := time.Until(e.expiresAt)
			if remaining < 0 {
				fmt.Printf("    TTL:      EXPIRED (%s ago)\n", (-remaining).Round(time.Second))
			} else {
				fmt.Printf("    TTL:      %s remaining (expires %s)\n",
					remaining.Round(time.Second),
					e.expiresAt.Format("2006-01-02 15:04:05 MST"),
				)
			}
		} else {
			fmt.Printf("    TTL:      no expiry set\n")
		}

		fmt.Printf("    Raw size: %d bytes\n", e.rawSize)

		if e.decodeErr != nil {
			fmt.Printf("    DECODE ERROR: %v\n", e.decodeErr)
			continue
		}

		s := e.sess
		fmt.Printf("    Context:  %s\n", s.ExpectedContext)
		fmt.Printf("    Updated:  %s\n", s.LastUpdated.Format("2006-01-02 15:04:05 MST"))
		if s.LastIntent != "" {
			fmt.Printf("    Intent:   %s\n", s.LastIntent)
		}
		if s.LastLocation != "" {
			fmt.Printf("    Location: %s\n", s.LastLocation)
		}
		if s.LastRestaurant != nil {
			fmt.Printf("    Chosen:   %s (%s)\n", s.LastRestaurant.Name, s.LastRestaurant.City)
		}
		if n := len(s.LastRestaurantsList); n > 0 {
			fmt.Printf("    Visible:  %d restaurants listed\n", n)
		}
		if n := len(s.LocationCache); n > 0 {
			fmt.Printf("    Cache:    %d location entr%s\n", n, map[bool]string{true: "y", false: "ies"}[n == 1])
		}

		if o := s.PendingOrder; o != nil {
			fmt.Printf("    Pending:  %.2f (%d item%s)\n", o.Total(), len(o.Items), plural(len(o.Items)))
			for _, it := range o.Items {
				size := ""
				if it.Size != "" {
					size = " " + it.Size
				}
				fmt.Printf("              %dx %s%s = %.2f\n", it.Quantity, it.Name, size, it.LineTotal())
			}
		}
		if s.Cart != nil && len(s.Cart.Orders) > 0 {
			fmt.Printf("    Cart:     %.2f across %d order%s\n",
				s.Cart.Total(), len(s.Cart.Orders), plural(len(s.Cart.Orders)))
		}
	}

	fmt.Println()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "session_dump: "+format+"\n", args...)
	os.Exit(1)
}
