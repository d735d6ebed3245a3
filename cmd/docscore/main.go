/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the document evaluation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/docscore/agents/judge"
	"chainguard.dev/docscore/agents/rubric"
	"chainguard.dev/docscore/evaluations"
	"chainguard.dev/docscore/evaluations/server"
	"chainguard.dev/docscore/evaluations/store"
	"chainguard.dev/docscore/progress"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/chainguard-dev/terraform-infra-common/pkg/profiler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	Port        int `env:"PORT,default=8080"`
	MetricsPort int `env:"METRICS_PORT,default=2112"`

	// Rubric catalogue override; the embedded defaults are used when unset.
	RubricsFile string `env:"RUBRICS_FILE"`

	DatabasePath    string `env:"DATABASE_PATH,default=docscore.db"`
	RecordCacheSize int    `env:"RECORD_CACHE_SIZE,default=256"`

	ProviderTimeout      time.Duration `env:"PROVIDER_TIMEOUT,default=90s"`
	CalibrationThreshold int           `env:"CALIBRATION_THRESHOLD,default=95"`
	SegmentConcurrency   int           `env:"SEGMENT_CONCURRENCY,default=4"`
	HeartbeatInterval    time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=2m"`

	// Vertex AI is used for Claude and Gemini when no API key is set.
	GCPProjectID string `env:"GCP_PROJECT_ID"`
	GCPRegion    string `env:"GCP_REGION,default=us-central1"`

	AnthropicAPIKey     string `env:"ANTHROPIC_API_KEY"`
	ClaudeModel         string `env:"CLAUDE_MODEL,default=claude-sonnet-4-5"`
	ClaudeFallbackModel string `env:"CLAUDE_FALLBACK_MODEL,default=claude-3-7-sonnet-latest"`

	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	GeminiModel         string `env:"GEMINI_MODEL,default=gemini-2.5-flash"`
	GeminiFallbackModel string `env:"GEMINI_FALLBACK_MODEL,default=gemini-2.0-flash"`

	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	OpenAIModel         string `env:"OPENAI_MODEL,default=gpt-4o"`
	OpenAIFallbackModel string `env:"OPENAI_FALLBACK_MODEL,default=gpt-4o-mini"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go httpmetrics.ScrapeDiskUsage(ctx)
	profiler.SetupProfiler()
	defer httpmetrics.SetupTracer(ctx)()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	catalog, err := rubric.LoadFile(cfg.RubricsFile)
	if err != nil {
		clog.FatalContextf(ctx, "loading rubrics: %v", err)
	}
	clog.InfoContextf(ctx, "Loaded %d rubrics: %v", len(catalog.IDs()), catalog.IDs())

	providers, err := newRegistry(ctx, &cfg)
	if err != nil {
		clog.FatalContextf(ctx, "configuring providers: %v", err)
	}
	if configured := providers.Configured(); len(configured) == 0 {
		clog.WarnContextf(ctx, "No provider is configured; every submission will be rejected")
	} else {
		clog.InfoContextf(ctx, "Configured providers: %v", configured)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		clog.FatalContextf(ctx, "opening database: %v", err)
	}
	defer db.Close()
	if n, err := db.FailInterrupted(ctx, time.Now()); err != nil {
		clog.FatalContextf(ctx, "failing interrupted evaluations: %v", err)
	} else if n > 0 {
		clog.WarnContextf(ctx, "Marked %d evaluations interrupted by a previous shutdown as failed", n)
	}
	records, err := store.NewCached(db, cfg.RecordCacheSize)
	if err != nil {
		clog.FatalContextf(ctx, "creating record cache: %v", err)
	}

	relay := progress.New(progress.WithHeartbeatInterval(cfg.HeartbeatInterval))
	defer relay.Close()

	svc, err := evaluations.New(providers, catalog, records, relay, []judge.Option{
		judge.WithCalibrationThreshold(cfg.CalibrationThreshold),
		judge.WithSegmentConcurrency(cfg.SegmentConcurrency),
	})
	if err != nil {
		clog.FatalContextf(ctx, "creating evaluation service: %v", err)
	}

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.ErrorContextf(ctx, "metrics server failed: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(svc, relay).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		clog.InfoContextf(ctx, "Starting document evaluation service on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.FatalContextf(ctx, "server failed: %v", err)
		}
	}()

	<-ctx.Done()
	clog.InfoContextf(ctx, "Shutting down")

	shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer done()
	// Streams end when their evaluations do, so drain evaluations first.
	if err := svc.Close(shutdownCtx); err != nil {
		clog.WarnContextf(ctx, "evaluations still running at shutdown: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		clog.WarnContextf(ctx, "server shutdown: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		clog.WarnContextf(ctx, "metrics server shutdown: %v", err)
	}
}
