// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

func TestOpenAIClientChat(t *testing.T) {
	var gotReq openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		resp := openaiResponse{
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: `{"intent":"find_nearby"}`}, FinishReason: "stop"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("test-key", "test-model", server.URL)
	out, err := client.Chat(context.Background(), []datatypes.Message{
		{Role: "system", Content: "classify"},
		{Role: "user", Content: "pizza nearby"},
	}, GenerationParams{JSONMode: true, Temperature: Float32Ptr(0.1), MaxTokens: IntPtr(256)})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if out != `{"intent":"find_nearby"}` {
		t.Errorf("unexpected response: %q", out)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("JSONMode should set response_format json_object, got %+v", gotReq.ResponseFormat)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestOpenAIClientChatErrors(t *testing.T) {
	t.Run("api_error_payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(openaiResponse{
				Error: &openaiError{Type: "invalid_request_error", Message: "bad model"},
			})
		}))
		defer server.Close()

		client := NewOpenAIClientWithConfig("k", "m", server.URL)
		_, err := client.Chat(context.Background(), []datatypes.Message{{Role: "user", Content: "hi"}}, GenerationParams{})
		if err == nil || !strings.Contains(err.Error(), "invalid_request_error") {
			t.Errorf("expected API error, got %v", err)
		}
	})

	t.Run("http_status_redacted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("invalid key sk-abcdefghijklmnopqrstuvwxyz123456"))
		}))
		defer server.Close()

		client := NewOpenAIClientWithConfig("k", "m", server.URL)
		_, err := client.Chat(context.Background(), []datatypes.Message{{Role: "user", Content: "hi"}}, GenerationParams{})
		if err == nil {
			t.Fatal("expected error")
		}
		if strings.Contains(err.Error(), "sk-abcdefghijklmnop") {
			t.Errorf("error leaked key material: %v", err)
		}
	})

	t.Run("no_choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(openaiResponse{})
		}))
		defer server.Close()

		client := NewOpenAIClientWithConfig("k", "m", server.URL)
		_, err := client.Chat(context.Background(), []datatypes.Message{{Role: "user", Content: "hi"}}, GenerationParams{})
		if err == nil || !strings.Contains(err.Error(), "no choices") {
			t.Errorf("expected no-choices error, got %v", err)
		}
	})
}

func TestSafeLogString(t *testing.T) {
	tests := []struct {
		in       string
		mustMiss string
	}{
		{"error: sk-abcdefghijklmnopqrstu123 returned 401", "sk-abcdefghijklmnopqrstu123"},
		{"Authorization: Bearer abc.def-ghi_jkl", "abc.def-ghi_jkl"},
		{"dsn password=hunter22&x=1", "hunter22"},
	}
	for _, tt := range tests {
		out := SafeLogString(tt.in)
		if strings.Contains(out, tt.mustMiss) {
			t.Errorf("SafeLogString(%q) leaked %q: %q", tt.in, tt.mustMiss, out)
		}
	}
	if SafeLogString("") != "" {
		t.Error("empty input should pass through")
	}
	if SafeLogString("plain message") != "plain message" {
		t.Error("clean input should be unchanged")
	}
}
