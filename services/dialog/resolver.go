// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dialog is the caller-facing surface of the Dialog service. It owns
// the per-turn resolution pipeline (classify, boost, escalate, transition,
// persist) and the HTTP handlers that expose it. Everything below it — nlu,
// catalog, orderparse, session — is a collaborator it wires together.
package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/catalog"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/nlu"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/orderparse"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/session"
)

// =============================================================================
// Metrics
// =============================================================================

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Name:      "turns_total",
		Help:      "Resolved turns by final intent, intent source, and reply kind",
	}, []string{"intent", "source", "reply_kind"})

	turnLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dialog",
		Name:      "turn_latency_seconds",
		Help:      "End-to-end ResolveTurn latency",
		Buckets:   prometheus.DefBuckets,
	})

	inputRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Name:      "input_rejected_total",
		Help:      "Turns soft-rejected before the pipeline ran",
	}, []string{"reason"})
)

var resolverTracer = otel.Tracer("concierge.dialog.resolver")

// =============================================================================
// Resolver
// =============================================================================

const (
	// maxUtteranceRunes is the input guard: anything longer is rejected
	// softly with an input_invalid reply rather than fed to the pipeline.
	maxUtteranceRunes = 500

	// DefaultPageSize is how many restaurants one reply page carries.
	DefaultPageSize = 5

	// recommendLimit caps how many picks a recommend reply carries.
	recommendLimit = 3
)

// Resolver runs one conversation turn end to end.
//
// # Description
//
// ResolveTurn is the only entry point: it loads the session, runs the
// three-stage intent pipeline (rule classifier, context booster, optional
// generative escalation), applies the dialogue state machine, persists the
// session, and returns the reply. Pipeline stages never fail a turn — the
// worst outcome of any internal error is an unknown intent with a generic
// re-prompt.
//
// # Thread Safety
//
// Safe for concurrent use across session ids. Concurrent turns against the
// SAME id are last-write-wins on the session (documented store contract).
type Resolver struct {
	classifier *nlu.Classifier
	booster    *nlu.Booster
	escalator  *nlu.Escalator

	restaurants *catalog.Resolver
	parser      *orderparse.Parser
	sessions    session.Store

	pageSize int
	logger   *slog.Logger
}

// NewResolver wires the turn pipeline together.
//
// Inputs:
//
//	classifier - Rule classifier. Must not be nil.
//	booster - Context booster. Must not be nil.
//	escalator - Generative escalation stage. May be nil (feature disabled).
//	restaurants - Restaurant/location resolver. Must not be nil.
//	parser - Order item parser. Must not be nil.
//	sessions - Session store. Must not be nil.
//	pageSize - Restaurants per reply page. Zero or negative uses the default.
//	logger - Logger instance. Must not be nil.
func NewResolver(
	classifier *nlu.Classifier,
	booster *nlu.Booster,
	escalator *nlu.Escalator,
	restaurants *catalog.Resolver,
	parser *orderparse.Parser,
	sessions session.Store,
	pageSize int,
	logger *slog.Logger,
) *Resolver {
	if classifier == nil || booster == nil || restaurants == nil || parser == nil || sessions == nil {
		panic("dialog.NewResolver: nil collaborator")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Resolver{
		classifier:  classifier,
		booster:     booster,
		escalator:   escalator,
		restaurants: restaurants,
		parser:      parser,
		sessions:    sessions,
		pageSize:    pageSize,
		logger:      logger,
	}
}

// ResolveTurn processes one user utterance for a session.
//
// Description:
//
//	Empty or oversized text is rejected softly (input_invalid reply,
//	session untouched). Otherwise the utterance runs through the intent
//	pipeline and the state machine, and the mutated session is persisted
//	before the result is returned. A store write failure is logged and
//	degraded, not surfaced: the caller still gets a correct reply, the
//	conversation just loses one turn of memory.
//
// Outputs:
//
//	*datatypes.TurnResult - Final intent, reply, and a session snapshot.
//	error - Non-nil only when the session cannot be loaded at all.
func (r *Resolver) ResolveTurn(ctx context.Context, sessionID, text, locationHint string) (*datatypes.TurnResult, error) {
	start := time.Now()
	ctx, span := resolverTracer.Start(ctx, "dialog.Resolver.ResolveTurn")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if reason := rejectInput(text); reason != "" {
		inputRejectedTotal.WithLabelValues(reason).Inc()
		sess, err := r.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", sessionID, err)
		}
		return &datatypes.TurnResult{
			Intent:     datatypes.IntentUnknown,
			Confidence: 0,
			Source:     datatypes.SourceClassic,
			Reply:      replyInputInvalid(reason),
			Session:    sess,
		}, nil
	}

	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	result := r.classifier.Classify(ctx, text)
	result = r.booster.Boost(ctx, text, result, sess)
	if r.escalator != nil {
		result = r.escalator.Resolve(ctx, text, result, sess)
	}
	span.SetAttributes(
		attribute.String("intent", string(result.Intent)),
		attribute.Float64("confidence", result.Confidence),
		attribute.String("source", string(result.Source)),
	)

	reply := r.transition(ctx, sess, text, locationHint, result)

	sess.LastIntent = result.Intent
	if err := r.sessions.Put(ctx, sess); err != nil {
		// The reply is still correct; only this turn's memory is lost.
		r.logger.Warn("session persist failed",
			"session_id", sessionID,
			"error", err)
	}

	turnsTotal.WithLabelValues(string(result.Intent), string(result.Source), string(reply.Kind)).Inc()
	turnLatency.Observe(time.Since(start).Seconds())
	r.logger.Info("turn resolved",
		"session_id", sessionID,
		"intent", result.Intent,
		"confidence", result.Confidence,
		"source", result.Source,
		"reply_kind", reply.Kind,
		"context", sess.ExpectedContext,
		"duration_ms", time.Since(start).Milliseconds())

	return &datatypes.TurnResult{
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Source:     result.Source,
		Slots:      result.Slots,
		Reply:      reply,
		Session:    sess.Clone(),
	}, nil
}

// Session returns a snapshot of a session's current state. A never-seen id
// yields a fresh idle session, mirroring the store contract.
func (r *Resolver) Session(ctx context.Context, sessionID string) (*datatypes.Session, error) {
	return r.sessions.Get(ctx, sessionID)
}

// rejectInput returns a non-empty rejection reason for text the pipeline
// should never see.
func rejectInput(text string) string {
	if strings.TrimSpace(text) == "" {
		return "empty"
	}
	if utf8.RuneCountInString(text) > maxUtteranceRunes {
		return "too_long"
	}
	return ""
}
