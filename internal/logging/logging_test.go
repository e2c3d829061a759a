package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSessionLoggerWritesEvents(t *testing.T) {
	baseDir := t.TempDir()
	workDir := t.TempDir()

	logger, err := NewSessionLogger(baseDir, workDir)
	if err != nil {
		t.Fatalf("NewSessionLogger failed: %v", err)
	}

	events := []Event{
		{Type: "load", Detail: "plan.json"},
		{Type: "edit", TaskID: "t1", From: "2024-01-01..2024-01-05", To: "2024-01-03..2024-01-07"},
		{Type: "auto_schedule", Detail: "2 task(s) moved"},
	}
	for _, ev := range events {
		if err := logger.Log(ev); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(logger.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var got []Event
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad JSONL line %q: %v", scanner.Text(), err)
		}
		got = append(got, ev)
	}
	if len(got) != len(events) {
		t.Fatalf("got %d events, want %d", len(got), len(events))
	}
	if got[1].TaskID != "t1" || got[1].To != "2024-01-03..2024-01-07" {
		t.Errorf("edit event mangled: %+v", got[1])
	}
	for i, ev := range got {
		if ev.Time.IsZero() {
			t.Errorf("event %d missing timestamp", i)
		}
	}
}

func TestSessionLoggerNilSafe(t *testing.T) {
	var logger *SessionLogger
	if err := logger.Log(Event{Type: "load"}); err != nil {
		t.Errorf("nil logger Log = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("nil logger Close = %v", err)
	}
}

func TestSessionLoggerEmptyBaseDir(t *testing.T) {
	if _, err := NewSessionLogger("", t.TempDir()); err == nil {
		t.Error("expected error for empty base dir")
	}
}

func TestFindLatestLog(t *testing.T) {
	dir := t.TempDir()

	if latest, err := FindLatestLog(dir); err != nil || latest != "" {
		t.Errorf("empty dir: latest = %q, err = %v", latest, err)
	}

	older := filepath.Join(dir, "20240101-000000-1.jsonl")
	newer := filepath.Join(dir, "20240102-000000-2.jsonl")
	if err := os.WriteFile(older, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}
	// Non-jsonl files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	latest, err := FindLatestLog(dir)
	if err != nil {
		t.Fatalf("FindLatestLog failed: %v", err)
	}
	if latest != newer {
		t.Errorf("latest = %q, want %q", latest, newer)
	}

	// A missing dir is not an error, just no logs.
	if latest, err := FindLatestLog(filepath.Join(dir, "missing")); err != nil || latest != "" {
		t.Errorf("missing dir: latest = %q, err = %v", latest, err)
	}
}

func TestFindLogDirStable(t *testing.T) {
	baseDir := t.TempDir()
	workDir := t.TempDir()

	logger, err := NewSessionLogger(baseDir, workDir)
	if err != nil {
		t.Fatalf("NewSessionLogger failed: %v", err)
	}
	defer logger.Close()

	found, err := FindLogDir(baseDir, workDir)
	if err != nil {
		t.Fatalf("FindLogDir failed: %v", err)
	}
	if found != logger.Dir {
		t.Errorf("FindLogDir = %q, logger dir = %q", found, logger.Dir)
	}
}

func TestTailLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")

	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, `{"type":"edit"}`)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := TailLog(&buf, path, 0, false); err != nil {
		t.Fatalf("TailLog failed: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 5 {
		t.Errorf("tail produced %d lines, want 5", got)
	}

	if err := TailLog(&buf, filepath.Join(dir, "missing.jsonl"), 0, false); err == nil {
		t.Error("expected error tailing missing file")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "my-project", want: "my-project"},
		{input: "My Project!", want: "My_Project"},
		{input: "", want: "project"},
		{input: "///", want: "project"},
	}
	for _, tt := range tests {
		if got := slugify(tt.input); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
