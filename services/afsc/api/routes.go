// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/services/afsc/observability"
)

// RegisterRoutes registers all lookup routes with the router.
//
// Description:
//
//	Registers all /v1/afsc/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  /v1/afsc/codes/:code - Resolve a code (?explain=true for per-family verdicts)
//	GET  /v1/afsc/search - List codes under ?prefix=
//	GET  /v1/afsc/families - Per-family snapshot and cache statistics
//	POST /v1/afsc/reload - Rebuild reference trees
//	GET  /v1/afsc/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	afsc := rg.Group("/afsc")
	{
		afsc.GET("/codes/:code", handlers.HandleFind)
		afsc.GET("/search", handlers.HandleSearch)
		afsc.GET("/families", handlers.HandleFamilies)
		afsc.POST("/reload", handlers.HandleReload)
		afsc.GET("/health", handlers.HandleHealth)
	}
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName is the otelgin service name. Default: logging.DefaultService.
	ServiceName string

	// Metrics records per-route request counts. nil disables.
	Metrics *observability.Metrics

	// Logger receives one line per request. nil disables access logging.
	Logger *logging.Logger
}

// NewRouter builds a gin engine with tracing, request ID, metrics and
// access-log middleware, and the /v1 routes registered.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = logging.DefaultService
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(RequestID())
	if opts.Metrics != nil {
		router.Use(RequestMetrics(opts.Metrics))
	}
	if opts.Logger != nil {
		router.Use(AccessLog(opts.Logger))
	}

	RegisterRoutes(router.Group("/v1"), handlers)
	return router
}

// RequestID assigns every request an ID before handlers run.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		c.Next()
	}
}

// RequestMetrics counts requests by route template and status.
func RequestMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.RecordRequest(routeLabel(c), c.Writer.Status())
	}
}

// AccessLog writes one INFO line per request.
func AccessLog(logger *logging.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"route", routeLabel(c),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// routeLabel is the matched route template. Unmatched paths share one
// label so arbitrary URLs cannot grow metric cardinality.
func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
