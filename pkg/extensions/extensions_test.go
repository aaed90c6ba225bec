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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/govcodes/pkg/logging"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NotNil(t, opts.AuthProvider)
	require.NotNil(t, opts.AuditLogger)

	normalized := ServiceOptions{}.Normalize()
	assert.IsType(t, &NopAuthProvider{}, normalized.AuthProvider)
	assert.IsType(t, &NopAuditLogger{}, normalized.AuditLogger)

	custom := DefaultOptions().WithAuth(NewTokenAuthProvider("s3cret"))
	assert.IsType(t, &TokenAuthProvider{}, custom.AuthProvider)
	assert.IsType(t, &NopAuditLogger{}, custom.AuditLogger)
}

func TestNopAuthProvider(t *testing.T) {
	info, err := (&NopAuthProvider{}).Validate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "local-user", info.UserID)
	assert.True(t, info.HasRole(RoleAdmin))
	assert.False(t, info.HasRole("viewer"))
}

func TestTokenAuthProvider(t *testing.T) {
	p := NewTokenAuthProvider("s3cret")

	info, err := p.Validate(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.True(t, info.HasRole(RoleAdmin))

	for _, token := range []string{"", "s3cre", "s3cret!", "S3CRET"} {
		_, err := p.Validate(context.Background(), token)
		assert.True(t, errors.Is(err, ErrUnauthorized), "token %q", token)
	}

	_, err = NewTokenAuthProvider("").Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogAuditLogger(t *testing.T) {
	exporter := logging.NewBufferedExporter()
	logger := logging.New(logging.Config{Quiet: true, Exporter: exporter})
	defer logger.Close()

	audit := NewLogAuditLogger(logger)
	require.NoError(t, audit.Log(context.Background(), AuditEvent{
		EventType: EventReload,
		UserID:    "token",
		Action:    "reload",
		Outcome:   OutcomeSuccess,
		Metadata:  map[string]any{"request_id": "req-1"},
	}))
	require.NoError(t, audit.Log(context.Background(), AuditEvent{
		EventType: EventAuthFailed,
		UserID:    "anonymous",
		Action:    "reload",
		Outcome:   OutcomeDenied,
	}))
	require.NoError(t, audit.Flush(context.Background()))

	assert.Eventually(t, func() bool { return len(exporter.Find("audit")) == 2 }, time.Second, 10*time.Millisecond)
	var sawSuccess, sawDenied bool
	for _, e := range exporter.Find("audit") {
		switch e.Attrs["outcome"] {
		case OutcomeSuccess:
			sawSuccess = e.Level == logging.LevelInfo && e.Attrs["request_id"] == "req-1"
		case OutcomeDenied:
			sawDenied = e.Level == logging.LevelWarn
		}
	}
	assert.True(t, sawSuccess)
	assert.True(t, sawDenied)
}

func TestNopAuditLogger(t *testing.T) {
	l := &NopAuditLogger{}
	assert.NoError(t, l.Log(context.Background(), AuditEvent{EventType: EventReload}))
	assert.NoError(t, l.Flush(context.Background()))
}
