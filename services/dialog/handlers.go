// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dialog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Wire Types
// =============================================================================

// TurnRequest is the POST /v1/dialog/turn body.
//
// Text carries no binding constraint on purpose: empty or oversized text is
// a soft rejection (input_invalid reply, HTTP 200), never a 400 — the
// conversation must survive a user who sends nothing.
type TurnRequest struct {
	SessionID    string `json:"session_id" binding:"required,max=128"`
	Text         string `json:"text"`
	LocationHint string `json:"location_hint" binding:"omitempty,max=128"`
}

// ErrorResponse is the uniform error body for non-200 responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// =============================================================================
// Handlers
// =============================================================================

// Handlers holds the HTTP handlers for the dialog API.
type Handlers struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewHandlers creates the handler set over a turn resolver.
func NewHandlers(resolver *Resolver, logger *slog.Logger) *Handlers {
	if resolver == nil {
		panic("dialog.NewHandlers: nil resolver")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{resolver: resolver, logger: logger}
}

// HandleTurn processes one conversation turn.
//
// Description:
//
//	Binds and validates the request, runs ResolveTurn, and returns the full
//	TurnResult. Pipeline-internal problems never surface as 5xx — the
//	resolver degrades them to re-prompt replies. A 500 here means the
//	session store itself is down.
//
// Response:
//
//	200 OK: datatypes.TurnResult
//	400 Bad Request: Malformed JSON or invalid session_id
//	500 Internal Server Error: Session store failure
//
// Thread Safety: Safe for concurrent use.
func (h *Handlers) HandleTurn(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleTurn")

	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: bindErrorMessage(err),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.resolver.ResolveTurn(c.Request.Context(), req.SessionID, req.Text, req.LocationHint)
	if err != nil {
		logger.Error("turn resolution failed", "session_id", req.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "session store unavailable",
			Code:  "STORE_UNAVAILABLE",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleGetSession returns a snapshot of a session's current state. An id
// never seen before yields a fresh idle session, matching the store contract.
//
// Response:
//
//	200 OK: datatypes.Session
//	500 Internal Server Error: Session store failure
func (h *Handlers) HandleGetSession(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleGetSession")

	id := c.Param("id")
	sess, err := h.resolver.Session(c.Request.Context(), id)
	if err != nil {
		logger.Error("session fetch failed", "session_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "session store unavailable",
			Code:  "STORE_UNAVAILABLE",
		})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// HandleHealth is the liveness probe.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "dialog"})
}

// =============================================================================
// Helpers
// =============================================================================

// getOrCreateRequestID returns the inbound X-Request-ID, minting one when the
// caller didn't send any, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Header("X-Request-ID", id)
	return id
}

// bindErrorMessage turns a binding failure into a caller-actionable message,
// naming the offending fields when the validator produced field errors.
func bindErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return "invalid fields: " + strings.Join(fields, ", ")
	}
	return "malformed request body"
}
