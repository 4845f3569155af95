// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the generative-model collaborator used by the dialog
// service's escalation path. The core only needs simple chat with an
// optional JSON output mode — no tool calling, no streaming — so the client
// surface is deliberately minimal and any OpenAI-compatible backend works.
package llm

import (
	"context"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
)

// =============================================================================
// Client Interface
// =============================================================================

// ChatClient is the minimal chat interface consumed by the escalation
// resolver.
//
// # Description
//
// The escalation path sends a system prompt plus one user message and reads
// back a single completion. Implementations must be idempotent and
// side-effect-free from the caller's point of view; the caller enforces its
// own timeout through ctx.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ChatClient interface {
	// Chat sends the conversation and returns the assistant's response text.
	Chat(ctx context.Context, messages []datatypes.Message, params GenerationParams) (string, error)
}

// GenerationParams holds per-request generation options.
//
// Nil pointer fields are omitted from the request so the backend's defaults
// apply; the Go zero value would otherwise be sent as an explicit setting.
type GenerationParams struct {
	// Temperature controls randomness. Nil omits the field.
	Temperature *float32

	// MaxTokens limits the completion length. Nil omits the field.
	MaxTokens *int

	// JSONMode asks the backend to constrain output to a single JSON object.
	JSONMode bool

	// ModelOverride selects a model for this request only. Empty uses the
	// client's configured model.
	ModelOverride string
}

// Float32Ptr returns a pointer to v. Convenience for GenerationParams.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr returns a pointer to v. Convenience for GenerationParams.
func IntPtr(v int) *int { return &v }
