// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Output Tests
// =============================================================================

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})
	defer logger.Close()

	logger.Debug("hidden")
	logger.Info("reference data loaded", "family", "enlisted")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level: %s", out)
	}
	for _, want := range []string{"reference data loaded", "family=enlisted", "service=govcodes"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, JSON: true, Service: "govcodes-test", Output: &buf})
	defer logger.Close()

	logger.With("family", "officer").Debug("lookup", "code", "11MX", "outcome", "found")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	want := map[string]string{
		"msg":     "lookup",
		"service": "govcodes-test",
		"family":  "officer",
		"code":    "11MX",
		"outcome": "found",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %q", k, entry[k], v)
		}
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nothing to see")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestEnabled(t *testing.T) {
	logger := New(Config{Level: LevelWarn, Quiet: true})
	if logger.Enabled(LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

// =============================================================================
// File Logging Tests
// =============================================================================

func TestNew_FileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger := New(Config{Level: LevelInfo, LogDir: dir, Quiet: true, Service: "govcodes"})
	logger.Info("written to file", "roots", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	path := filepath.Join(dir, "govcodes_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"written to file"`) {
		t.Errorf("file content = %s", data)
	}
}

func TestNew_UnwritableLogDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(file, "logs"), Output: &buf})
	defer logger.Close()

	logger.Info("still works")
	if !strings.Contains(buf.String(), "still works") {
		t.Error("console output lost when file logging failed")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

func waitForEntries(t *testing.T, e *BufferedExporter, n int) []LogEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entries := e.Entries(); len(entries) >= n {
			return entries
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d exported entries, got %d", n, len(e.Entries()))
	return nil
}

func TestBufferedExporter(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Level: LevelWarn, Quiet: true, Exporter: exporter})

	logger.Info("below level")
	logger.Warn("document skipped", "path", "gov_codes/afsc/ri.yml")

	entries := waitForEntries(t, exporter, 1)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Level != LevelWarn || entries[0].Service != DefaultService {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].Attrs["path"] != "gov_codes/afsc/ri.yml" {
		t.Errorf("attrs = %v", entries[0].Attrs)
	}
	if got := exporter.Find("document skipped"); len(got) != 1 {
		t.Errorf("Find() = %d entries", len(got))
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

// closeTrackingExporter counts Export calls that arrive after Close.
type closeTrackingExporter struct {
	mu        sync.Mutex
	closed    bool
	exported  int
	afterDone int
}

func (e *closeTrackingExporter) Export(context.Context, LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		e.afterDone++
		return nil
	}
	e.exported++
	return nil
}

func (e *closeTrackingExporter) Flush(context.Context) error { return nil }

func (e *closeTrackingExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func TestClose_ChildrenStopExporting(t *testing.T) {
	exporter := &closeTrackingExporter{}
	root := New(Config{Quiet: true, Exporter: exporter})
	child := root.With("component", "api")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				child.Info("request")
			}
		}()
	}
	if err := root.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	wg.Wait()
	child.Warn("after close")
	root.Error("after close")
	if err := root.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	if exporter.afterDone != 0 {
		t.Errorf("%d entries exported after Close", exporter.afterDone)
	}
}

func TestArgsToMap(t *testing.T) {
	got := argsToMap([]any{"a", 1, 2, "ignored", "dangling"})
	if len(got) != 1 || got["a"] != 1 {
		t.Errorf("argsToMap() = %v", got)
	}
}
