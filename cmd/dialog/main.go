// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command dialog starts the Concierge Dialog API server.
//
// Concierge Dialog is the conversational brain of a food-ordering assistant:
//   - Layered intent resolution (pattern rules, context booster, optional
//     generative-model escalation)
//   - Fuzzy restaurant and dish matching over a pluggable catalog
//   - Per-session dialogue state with pending-order confirmation
//
// Usage:
//
//	go run ./cmd/dialog
//	go run ./cmd/dialog -port 9090 -debug
//
// With persistent sessions (BadgerDB):
//
//	go run ./cmd/dialog -session-dir ~/.concierge/sessions
//
// With generative escalation (any OpenAI-compatible endpoint):
//
//	OPENAI_API_KEY=sk-... go run ./cmd/dialog
//	OPENAI_API_KEY=x OPENAI_BASE_URL=http://localhost:11434/v1 OPENAI_MODEL=llama3 go run ./cmd/dialog
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/dialog/health
//
//	# One conversation turn
//	curl -X POST http://localhost:8080/v1/dialog/turn \
//	  -H "Content-Type: application/json" \
//	  -d '{"session_id": "demo", "text": "where can I eat pizza near Riverside"}'
//
//	# Inspect session state
//	curl http://localhost:8080/v1/dialog/session/demo
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AleutianAI/ConciergeFOSS/services/dialog"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/catalog"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/config"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/nlu"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/orderparse"
	"github.com/AleutianAI/ConciergeFOSS/services/dialog/session"
	badgerstore "github.com/AleutianAI/ConciergeFOSS/services/dialog/storage/badger"
	"github.com/AleutianAI/ConciergeFOSS/services/llm"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	pageSize := flag.Int("page-size", dialog.DefaultPageSize, "Restaurants per reply page")
	sessionDir := flag.String("session-dir", os.Getenv("DIALOG_SESSION_DIR"),
		"BadgerDB directory for persistent sessions (empty: in-memory)")
	sessionTTL := flag.Duration("session-ttl", session.DefaultSessionTTL, "Session inactivity TTL")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := slog.Default()

	// W3C TraceContext propagation so trace ids flow in from callers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Intent pipeline over the embedded vocabularies.
	expander := nlu.NewAliasExpander(config.MustLoadCuisineAliases())
	classifier := nlu.NewClassifier(config.MustLoadIntentRules(), expander, logger)
	booster := nlu.NewBooster(logger)

	// Escalation is opt-in: no API key, no generative stage.
	var escalator *nlu.Escalator
	if client, err := llm.NewOpenAIClient(); err != nil {
		logger.Info("generative escalation disabled", "reason", err.Error())
	} else {
		escalator = nlu.NewEscalator(client, nlu.DefaultEscalationThreshold, nlu.DefaultEscalationTimeout, logger)
		logger.Info("generative escalation enabled")
	}

	restaurants := catalog.NewResolver(catalog.NewFixtureCatalog(), config.MustLoadNearbyCities(), 0, logger)
	parser := orderparse.NewParser(config.MustLoadSizeSynonyms(), config.MustLoadExtrasVocab(), logger)

	// Graceful degradation: a broken Badger directory falls back to the
	// in-memory store rather than refusing to start.
	var store session.Store
	var sessionDB *badgerstore.DB
	if *sessionDir != "" {
		db, err := badgerstore.Open(*sessionDir, logger)
		if err != nil {
			logger.Warn("session BadgerDB unavailable, using in-memory sessions",
				slog.String("path", *sessionDir),
				slog.String("error", err.Error()))
		} else {
			sessionDB = db
			store = session.NewBadgerStore(db, *sessionTTL, logger)
			logger.Info("session BadgerDB opened", slog.String("path", *sessionDir))
		}
	}
	if store == nil {
		store = session.NewMemoryStore(*sessionTTL, logger)
	}

	resolver := dialog.NewResolver(classifier, booster, escalator, restaurants, parser, store, *pageSize, logger)
	handlers := dialog.NewHandlers(resolver, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("concierge-dialog"))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	dialog.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, escalator != nil, sessionDB != nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down Concierge Dialog server")
		if sessionDB != nil {
			if err := sessionDB.Close(); err != nil {
				logger.Warn("failed to close session BadgerDB", slog.String("error", err.Error()))
			}
		}
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	if err := router.Run(addr); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// printBanner prints the startup summary.
func printBanner(port int, escalation, persistent bool) {
	onOff := func(b bool) string {
		if b {
			return "enabled"
		}
		return "disabled"
	}
	fmt.Printf(`
Concierge Dialog Server
=======================
  Port:         %d
  Escalation:   %s
  Sessions:     %s
  Started:      %s

  POST /v1/dialog/turn
  GET  /v1/dialog/session/:id
  GET  /v1/dialog/health
  GET  /metrics

`, port, onOff(escalation), map[bool]string{true: "persistent (badger)", false: "in-memory"}[persistent],
		time.Now().Format(time.RFC3339))
}
