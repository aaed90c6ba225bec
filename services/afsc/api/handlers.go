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
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/govcodes/pkg/extensions"
	"github.com/AleutianAI/govcodes/pkg/logging"
	"github.com/AleutianAI/govcodes/pkg/validation"
	"github.com/AleutianAI/govcodes/services/afsc"
	"github.com/AleutianAI/govcodes/services/afsc/family"
	"github.com/AleutianAI/govcodes/services/afsc/loader"
)

// requestIDKey is the gin context key holding the request ID.
const requestIDKey = "request_id"

// Handlers serves the lookup API over an Engine.
//
// # Thread Safety
//
// Safe for concurrent use. All state lives in the Engine.
type Handlers struct {
	engine  *afsc.Engine
	logger  *logging.Logger
	ext     extensions.ServiceOptions
	started time.Time
}

// NewHandlers creates handlers over engine. A nil logger discards.
// Reload is open to every caller until WithExtensions installs an
// AuthProvider.
func NewHandlers(engine *afsc.Engine, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{
		engine:  engine,
		logger:  logger.With("component", "api"),
		ext:     extensions.DefaultOptions(),
		started: time.Now(),
	}
}

// WithExtensions sets the auth and audit hooks used by HandleReload.
// Nil fields fall back to no-op defaults.
func (h *Handlers) WithExtensions(opts extensions.ServiceOptions) *Handlers {
	h.ext = opts.Normalize()
	return h
}

// HandleFind handles GET /v1/afsc/codes/:code.
//
// # Description
//
// Resolves the code against every family in dispatch order. With
// ?explain=true the response also carries each family's verdict, on both
// hits and misses.
//
// # Outputs
//
//   - 200 CodeResponse on a hit.
//   - 400 if explain is not a boolean.
//   - 404 NotFoundResponse if no family resolves the code.
func (h *Handlers) HandleFind(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleFind")

	code := c.Param("code")
	explain, err := queryBool(c, "explain")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "explain must be a boolean",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	var attempts []afsc.Attempt
	if explain {
		attempts = h.engine.Explain(ctx, code)
	}

	found, ok := h.engine.Find(ctx, code)
	if !ok {
		logger.Debug("code not found", "code", code)
		c.JSON(http.StatusNotFound, NotFoundResponse{
			ErrorResponse: ErrorResponse{
				Error: "no family resolves " + strconv.Quote(code),
				Code:  "NOT_FOUND",
			},
			Attempts: attempts,
		})
		return
	}

	c.JSON(http.StatusOK, CodeResponse{Code: found, Attempts: attempts})
}

// HandleSearch handles GET /v1/afsc/search?prefix=.
//
// An empty prefix lists every resolvable code. The prefix is matched
// case-insensitively.
func (h *Handlers) HandleSearch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleSearch")

	prefix, err := validation.SanitizePrefix(c.Query("prefix"))
	if err != nil {
		logger.Warn("rejected search prefix", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid prefix",
			Code:    "INVALID_PREFIX",
			Details: err.Error(),
		})
		return
	}

	codes := h.engine.Search(c.Request.Context(), prefix)
	if codes == nil {
		codes = []family.Code{}
	}
	c.JSON(http.StatusOK, SearchResponse{Prefix: prefix, Count: len(codes), Codes: codes})
}

// HandleReload handles POST /v1/afsc/reload.
//
// # Description
//
// Rebuilds every family. An empty body reloads from the current search
// paths. A body with search_paths replaces them. The caller must present
// a bearer token accepted by the configured AuthProvider and hold the
// admin role. Every attempt is written to the AuditLogger.
//
// # Outputs
//
//   - 200 ReloadResponse. Documents that failed to decode are listed per
//     family under skipped; they do not fail the request.
//   - 400 on a malformed body.
//   - 401 if the token is rejected, 403 without the admin role.
//   - 500 if a family could not be rebuilt.
func (h *Handlers) HandleReload(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleReload")
	ctx := c.Request.Context()

	info, ok := h.authorize(c, requestID, "reload")
	if !ok {
		return
	}

	var req ReloadRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	start := time.Now()
	var (
		reports []loader.Report
		err     error
	)
	if req.SearchPaths == nil {
		reports, err = h.engine.Refresh(ctx)
	} else {
		reports, err = h.engine.Reload(ctx, req.SearchPaths)
	}
	if err != nil {
		logger.Error("reload failed", "error", err)
		h.audit(c, extensions.AuditEvent{
			EventType: extensions.EventReload,
			UserID:    info.UserID,
			Action:    "reload",
			Outcome:   extensions.OutcomeFailure,
			Metadata:  map[string]any{"request_id": requestID, "error": err.Error()},
		})
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "RELOAD_FAILED",
		})
		return
	}

	resp := ReloadResponse{
		SearchPaths: h.engine.SearchPaths(),
		Families:    make([]ReloadReport, 0, len(reports)),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if resp.SearchPaths == nil {
		resp.SearchPaths = []string{}
	}
	for _, r := range reports {
		rr := ReloadReport{Family: r.Family, Loaded: r.Loaded}
		for _, s := range r.Skipped {
			rr.Skipped = append(rr.Skipped, s.Error())
		}
		resp.Families = append(resp.Families, rr)
	}
	logger.Info("reloaded reference data", "families", len(reports), "duration_ms", resp.DurationMs)
	h.audit(c, extensions.AuditEvent{
		EventType: extensions.EventReload,
		UserID:    info.UserID,
		Action:    "reload",
		Outcome:   extensions.OutcomeSuccess,
		Metadata:  map[string]any{"request_id": requestID, "search_paths": resp.SearchPaths},
	})
	c.JSON(http.StatusOK, resp)
}

// HandleFamilies handles GET /v1/afsc/families.
func (h *Handlers) HandleFamilies(c *gin.Context) {
	getOrCreateRequestID(c)

	resp := FamiliesResponse{SearchPaths: h.engine.SearchPaths()}
	if resp.SearchPaths == nil {
		resp.SearchPaths = []string{}
	}
	for _, f := range h.engine.Families() {
		resp.Families = append(resp.Families, f.Stats())
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/afsc/health.
//
// Reports "degraded" with 503 when any family has an empty tree, which
// means every document for it was missing or skipped.
func (h *Handlers) HandleHealth(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	for _, f := range h.engine.Families() {
		if f.Stats().Tree.Roots == 0 {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(code, HealthResponse{
		Status:  status,
		Version: ServiceVersion,
		Uptime:  uptime(h.started),
	})
}

// authorize validates the bearer token and requires the admin role.
// On failure the response is written and ok is false.
func (h *Handlers) authorize(c *gin.Context, requestID, action string) (*extensions.AuthInfo, bool) {
	token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	info, err := h.ext.AuthProvider.Validate(c.Request.Context(), token)
	if err != nil {
		status, code := http.StatusUnauthorized, "UNAUTHORIZED"
		if !errors.Is(err, extensions.ErrUnauthorized) {
			status, code = http.StatusInternalServerError, "AUTH_FAILED"
		}
		h.audit(c, extensions.AuditEvent{
			EventType: extensions.EventAuthFailed,
			UserID:    "anonymous",
			Action:    action,
			Outcome:   extensions.OutcomeDenied,
			Metadata:  map[string]any{"request_id": requestID, "error": err.Error()},
		})
		c.JSON(status, ErrorResponse{Error: "authentication required", Code: code})
		return nil, false
	}
	if !info.HasRole(extensions.RoleAdmin) {
		h.audit(c, extensions.AuditEvent{
			EventType: extensions.EventAuthFailed,
			UserID:    info.UserID,
			Action:    action,
			Outcome:   extensions.OutcomeDenied,
			Metadata:  map[string]any{"request_id": requestID},
		})
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "admin role required", Code: "FORBIDDEN"})
		return nil, false
	}
	return info, true
}

func (h *Handlers) audit(c *gin.Context, event extensions.AuditEvent) {
	if err := h.ext.AuditLogger.Log(c.Request.Context(), event); err != nil {
		h.logger.Warn("audit log failed", "event_type", event.EventType, "error", err)
	}
}

// getOrCreateRequestID returns the request ID for c.
//
// Prefers the ID set by RequestID middleware, then the X-Request-ID
// header, then a fresh UUID. The ID is echoed in the response header.
func getOrCreateRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDKey, requestID)
	c.Header("X-Request-ID", requestID)
	return requestID
}

// bindOptionalJSON binds a JSON body if one was sent.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
