// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"time"

	"github.com/AleutianAI/govcodes/pkg/logging"
)

// Event types recorded by the server.
const (
	EventReload     = "data.reload"
	EventAuthFailed = "auth.failed"
)

// Outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// AuditEvent represents an administrative event.
//
// Example:
//
//	event := AuditEvent{
//	    EventType: extensions.EventReload,
//	    UserID:    info.UserID,
//	    Action:    "reload",
//	    Outcome:   extensions.OutcomeSuccess,
//	    Metadata:  map[string]any{"search_paths": paths},
//	}
type AuditEvent struct {
	// EventType is "category.action", e.g. "data.reload".
	EventType string

	// Timestamp is when the event occurred (UTC). Zero means now.
	Timestamp time.Time

	// UserID identifies who performed the action; "anonymous" if unknown.
	UserID string

	// Action describes what was attempted.
	Action string

	// Outcome is one of OutcomeSuccess, OutcomeFailure, OutcomeDenied.
	Outcome string

	// Metadata holds event-specific detail such as "request_id" or "error".
	Metadata map[string]any
}

// AuditLogger records administrative events.
//
// Implementations must be safe for concurrent use and return quickly.
type AuditLogger interface {
	// Log records one event.
	Log(ctx context.Context, event AuditEvent) error

	// Flush persists buffered events. Call before shutdown.
	Flush(ctx context.Context) error
}

// NopAuditLogger discards all events.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(context.Context, AuditEvent) error { return nil }

// Flush is a no-op.
func (l *NopAuditLogger) Flush(context.Context) error { return nil }

// LogAuditLogger writes events as INFO (WARN when not successful) entries
// with component=audit.
type LogAuditLogger struct {
	logger *logging.Logger
}

// NewLogAuditLogger returns an audit logger writing to logger.
func NewLogAuditLogger(logger *logging.Logger) *LogAuditLogger {
	return &LogAuditLogger{logger: logger.With("component", "audit")}
}

// Log writes event.
func (l *LogAuditLogger) Log(_ context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	args := []any{
		"event_type", event.EventType,
		"user_id", event.UserID,
		"action", event.Action,
		"outcome", event.Outcome,
		"at", event.Timestamp.Format(time.RFC3339Nano),
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}
	if event.Outcome == OutcomeSuccess {
		l.logger.Info("audit", args...)
	} else {
		l.logger.Warn("audit", args...)
	}
	return nil
}

// Flush is a no-op; entries are written synchronously.
func (l *LogAuditLogger) Flush(context.Context) error { return nil }

// Compile-time interface compliance checks.
var (
	_ AuditLogger = (*NopAuditLogger)(nil)
	_ AuditLogger = (*LogAuditLogger)(nil)
)
