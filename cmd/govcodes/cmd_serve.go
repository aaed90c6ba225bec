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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/govcodes/pkg/extensions"
	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/services/afsc"
	"github.com/AleutianAI/govcodes/services/afsc/api"
	"github.com/AleutianAI/govcodes/services/afsc/loader"
	"github.com/AleutianAI/govcodes/services/afsc/observability"
	"github.com/AleutianAI/govcodes/services/afsc/telemetry"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups over HTTP",
		Long: `Starts the HTTP API:

  GET  /v1/afsc/codes/:code   resolve a code (?explain=true)
  GET  /v1/afsc/search        list codes (?prefix=)
  GET  /v1/afsc/families      per-family statistics
  POST /v1/afsc/reload        rebuild reference trees
  GET  /v1/afsc/health        health check
  GET  /metrics               Prometheus metrics

With --watch, reference documents under the search paths are reloaded
when they change.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
	cmd.Flags().String("host", "", "listen address (default from config)")
	cmd.Flags().Int("port", 0, "listen port (default from config)")
	cmd.Flags().Bool("watch", false, "reload when reference documents change")
	return cmd
}

// server is everything "serve" wires together.
type server struct {
	engine   *afsc.Engine
	registry *prometheus.Registry
	handler  http.Handler
	watcher  *loader.Watcher
	shutdown func(context.Context) error
	logger   *logging.Logger
}

// buildServer wires telemetry, the engine and the router without
// listening.
func (a *app) buildServer(ctx context.Context) (*server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	tcfg := telemetry.DefaultConfig(logging.DefaultService, api.ServiceVersion)
	tcfg.Registry = reg
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, err
	}

	engine, err := a.newEngine(ctx, metrics)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	ext := extensions.DefaultOptions().WithAudit(extensions.NewLogAuditLogger(a.logger))
	if a.cfg.Server.ReloadToken != "" {
		ext = ext.WithAuth(extensions.NewTokenAuthProvider(a.cfg.Server.ReloadToken))
	}
	handlers := api.NewHandlers(engine, a.logger).WithExtensions(ext)

	router := api.NewRouter(handlers, api.RouterOptions{
		Metrics: metrics,
		Logger:  a.logger,
	})
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler(reg)))

	s := &server{
		engine:   engine,
		registry: reg,
		handler:  router,
		shutdown: shutdown,
		logger:   a.logger.With("component", "server"),
	}

	if a.cfg.Server.Watch {
		paths := engine.SearchPaths()
		if len(paths) == 0 {
			s.logger.Info("watch enabled with no search paths; idle until a reload sets some")
		}
		w, err := loader.NewWatcher(paths, s.onChange, loader.WatcherOptions{Logger: a.logger})
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("creating watcher: %w", err)
		}
		s.watcher = w
		engine.OnReload(w.SetPaths)
	}
	return s, nil
}

// onChange reloads every family after reference documents change.
func (s *server) onChange(ctx context.Context, paths []string) {
	s.logger.Info("reference documents changed", "paths", paths)
	if _, err := s.engine.Refresh(ctx); err != nil {
		s.logger.Error("reload after change failed", "error", err)
	}
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("host") {
		a.cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		a.cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("watch") {
		a.cfg.Server.Watch, _ = flags.GetBool("watch")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	s, err := a.buildServer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.shutdown(flushCtx); err != nil {
			s.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer s.watcher.Stop()
	}

	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr, "search_paths", s.engine.SearchPaths(), "watch", s.watcher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
