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

	"github.com/AleutianAI/govcodes/services/afsc"
	"github.com/AleutianAI/govcodes/services/afsc/family"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// =============================================================================
// Responses
// =============================================================================

// CodeResponse is the response for GET /v1/afsc/codes/:code.
type CodeResponse struct {
	// Code is the resolved code.
	Code family.Code `json:"code"`

	// Attempts is set when the request asked for an explanation.
	Attempts []afsc.Attempt `json:"attempts,omitempty"`
}

// NotFoundResponse is returned with 404 when no family resolves a code.
// Attempts is set when the request asked for an explanation.
type NotFoundResponse struct {
	ErrorResponse
	Attempts []afsc.Attempt `json:"attempts,omitempty"`
}

// SearchResponse is the response for GET /v1/afsc/search.
type SearchResponse struct {
	// Prefix is the normalized prefix that was searched.
	Prefix string `json:"prefix"`

	// Count is len(Codes).
	Count int `json:"count"`

	// Codes are the results, enlisted first, then officer, then reporting
	// identifiers.
	Codes []family.Code `json:"codes"`
}

// ReloadRequest is the optional body for POST /v1/afsc/reload.
type ReloadRequest struct {
	// SearchPaths replaces the engine's search paths. When nil the
	// current paths are reloaded.
	SearchPaths []string `json:"search_paths" binding:"omitempty,dive,required"`
}

// ReloadResponse is the response for POST /v1/afsc/reload.
type ReloadResponse struct {
	SearchPaths []string       `json:"search_paths"`
	Families    []ReloadReport `json:"families"`
	DurationMs  int64          `json:"duration_ms"`
}

// ReloadReport summarizes one family after a reload.
type ReloadReport struct {
	Family  string   `json:"family"`
	Loaded  []string `json:"loaded"`
	Skipped []string `json:"skipped,omitempty"`
}

// FamiliesResponse is the response for GET /v1/afsc/families.
type FamiliesResponse struct {
	SearchPaths []string       `json:"search_paths"`
	Families    []family.Stats `json:"families"`
}

// HealthResponse is the response for GET /v1/afsc/health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// Uptime is the time since the handlers were created.
	Uptime string `json:"uptime"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details contains additional error details (optional).
	Details string `json:"details,omitempty"`
}

func uptime(since time.Time) string {
	return time.Since(since).Round(time.Second).String()
}
