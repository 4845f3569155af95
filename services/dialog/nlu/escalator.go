// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlu

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog/datatypes"
	"github.com/AleutianAI/ConciergeFOSS/services/llm"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	escalationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialog",
		Subsystem: "nlu",
		Name:      "escalation_total",
		Help:      "Escalation events by outcome: success, error, rejected, skipped",
	}, []string{"outcome"})

	escalationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dialog",
		Subsystem: "nlu",
		Name:      "escalation_latency_seconds",
		Help:      "Latency of generative-model escalation calls",
		Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 3.0, 5.0},
	})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var escalatorTracer = otel.Tracer("concierge.dialog.nlu.escalator")

// =============================================================================
// Escalator
// =============================================================================

// Default escalation tuning. The solid floor keeps already-actionable
// classifications local even when they sit below the escalation threshold.
const (
	DefaultEscalationThreshold = 0.55
	DefaultSolidFloor          = 0.45
	DefaultEscalationTimeout   = 5 * time.Second

	// llmPreferMargin is how much the model's confidence must beat the
	// local result before the model's intent is preferred.
	llmPreferMargin = 0.1
)

// Escalator escalates low-confidence classifications to a generative model.
//
// Description:
//
//	Wraps the local (classic + booster) result. Escalation happens only
//	when it is enabled, the local confidence is below the threshold, and
//	the local intent is not already solid and actionable. The model call
//	runs under a hard timeout and its JSON output is validated against the
//	closed intent set; any failure degrades to the local result. Errors
//	never escape this layer.
//
// Inputs:
//
//	client - Chat client for the generative model. Nil disables escalation.
//	threshold - Local confidence below which escalation is considered.
//	timeout - Hard ceiling for the model call. Zero uses the default (5s).
//	logger - Logger instance. Must not be nil.
//
// Thread Safety: Safe for concurrent use (delegates to a thread-safe client).
type Escalator struct {
	client     llm.ChatClient
	threshold  float64
	solidFloor float64
	timeout    time.Duration
	logger     *slog.Logger
}

// NewEscalator creates an Escalator.
//
// Outputs:
//
//	*Escalator - The constructed escalator. Never nil. A nil client yields
//	a passthrough escalator with zero overhead.
func NewEscalator(client llm.ChatClient, threshold float64, timeout time.Duration, logger *slog.Logger) *Escalator {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = DefaultEscalationThreshold
	}
	if timeout <= 0 {
		timeout = DefaultEscalationTimeout
	}
	return &Escalator{
		client:     client,
		threshold:  threshold,
		solidFloor: DefaultSolidFloor,
		timeout:    timeout,
		logger:     logger,
	}
}

// Enabled reports whether a generative model is configured.
func (e *Escalator) Enabled() bool {
	return e.client != nil
}

// Resolve escalates the local result to the generative model when warranted.
//
// Description:
//
//  1. Skips when disabled, when the local confidence meets the threshold,
//     or when the local intent is actionable and at or above the solid
//     floor (good enough to act on without a model round-trip).
//  2. Calls the model with the utterance plus compact session context
//     under a hard timeout.
//  3. Hybrid merge: the model's intent is preferred only when it beats
//     the local confidence by more than a fixed margin, or when the local
//     intent is unknown. Otherwise the local result stands.
//  4. Any failure (timeout, transport, malformed JSON, invalid intent
//     tag) degrades to the local result.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing. Must not be nil.
//	text - The raw utterance text.
//	local - The classic+booster result. Must not be nil.
//	sess - The current session, read-only here. May be nil.
//
// Outputs:
//
//	*datatypes.IntentResult - The merged result. Never nil, never an error.
//
// Thread Safety: Safe for concurrent use.
func (e *Escalator) Resolve(ctx context.Context, text string, local *datatypes.IntentResult, sess *datatypes.Session) *datatypes.IntentResult {
	ctx, span := escalatorTracer.Start(ctx, "nlu.Escalator.Resolve")
	defer span.End()

	span.SetAttributes(
		attribute.String("local_intent", string(local.Intent)),
		attribute.Float64("local_confidence", local.Confidence),
		attribute.Bool("escalation_configured", e.client != nil),
	)

	if e.client == nil || local.Confidence >= e.threshold {
		escalationTotal.WithLabelValues("skipped").Inc()
		span.SetAttributes(attribute.Bool("escalated", false))
		return local
	}
	if local.Intent.Actionable() && local.Confidence >= e.solidFloor {
		// Solid enough to act on locally.
		escalationTotal.WithLabelValues("skipped").Inc()
		span.SetAttributes(
			attribute.Bool("escalated", false),
			attribute.String("skip_reason", "solid_actionable"),
		)
		return local
	}

	e.logger.Info("nlu escalation triggered",
		slog.String("local_intent", string(local.Intent)),
		slog.Float64("local_confidence", local.Confidence),
		slog.Float64("threshold", e.threshold),
	)

	start := time.Now()
	escCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.client.Chat(escCtx, buildEscalationMessages(text, sess), llm.GenerationParams{
		Temperature: llm.Float32Ptr(0.1),
		MaxTokens:   llm.IntPtr(300),
		JSONMode:    true,
	})
	duration := time.Since(start)
	escalationLatency.Observe(duration.Seconds())

	if err != nil {
		e.logger.Warn("nlu escalation failed, using local result",
			slog.String("error", llm.SafeLogString(err.Error())),
			slog.Duration("duration", duration),
		)
		escalationTotal.WithLabelValues("error").Inc()
		span.SetAttributes(
			attribute.Bool("escalated", true),
			attribute.String("escalation_outcome", "error"),
		)
		return local
	}

	modelResult, err := parseEscalationResponse(raw)
	if err != nil {
		e.logger.Warn("nlu escalation returned unusable output, using local result",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		escalationTotal.WithLabelValues("error").Inc()
		span.SetAttributes(
			attribute.Bool("escalated", true),
			attribute.String("escalation_outcome", "malformed"),
		)
		return local
	}

	merged := e.merge(local, modelResult)
	outcome := "rejected"
	if merged.Source == datatypes.SourceLLM {
		outcome = "success"
	}
	escalationTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Bool("escalated", true),
		attribute.String("escalation_outcome", outcome),
		attribute.String("model_intent", string(modelResult.Intent)),
		attribute.Float64("model_confidence", modelResult.Confidence),
	)

	e.logger.Info("nlu escalation completed",
		slog.String("model_intent", string(modelResult.Intent)),
		slog.Float64("model_confidence", modelResult.Confidence),
		slog.String("outcome", outcome),
		slog.Duration("duration", duration),
	)
	return merged
}

// merge prefers the model's result only when it clearly beats the local one.
//
// Description:
//
//	The model wins when the local intent is unknown or empty, or when the
//	model's confidence exceeds the local confidence by more than the
//	margin. When the model wins, local slots the model did not mention are
//	carried over so context extraction is never lost in the hand-off.
func (e *Escalator) merge(local, model *datatypes.IntentResult) *datatypes.IntentResult {
	localUnresolved := local.Intent == datatypes.IntentUnknown || local.Intent == ""
	if !localUnresolved && model.Confidence <= local.Confidence+llmPreferMargin {
		return local
	}
	if model.Intent == datatypes.IntentUnknown && !localUnresolved {
		return local
	}

	out := model.Clone()
	for name, value := range local.Slots {
		if _, ok := out.Slots[name]; !ok {
			out.SetSlot(name, value)
		}
	}
	return out
}
