// Package logging writes JSONL edit-audit logs and tail output.
package logging

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Event is a single audit record: one plan mutation or lifecycle step.
type Event struct {
	Time   time.Time `json:"time"`
	Type   string    `json:"type"`              // load, save, edit, link, auto_schedule, add, remove
	TaskID string    `json:"task_id,omitempty"`
	From   string    `json:"from,omitempty"` // "start..end" before the change
	To     string    `json:"to,omitempty"`   // "start..end" after the change
	Detail string    `json:"detail,omitempty"`
}

// SessionLogger manages the per-session JSONL audit file.
type SessionLogger struct {
	Dir       string
	SessionID string
	LogPath   string
	file      *os.File
	enc       *json.Encoder
}

// NewSessionLogger creates a per-session log directory and JSONL file.
func NewSessionLogger(baseDir, workDir string) (*SessionLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("log base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	baseDir = resolveBaseDir(baseDir, resolvedWorkDir)
	projectRoot := resolveProjectRoot(resolvedWorkDir)
	logDir := filepath.Join(baseDir, projectSlug(projectRoot))

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	sessionID := sessionID()
	logPath := filepath.Join(logDir, fmt.Sprintf("%s.jsonl", sessionID))
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	return &SessionLogger{
		Dir:       logDir,
		SessionID: sessionID,
		LogPath:   logPath,
		file:      file,
		enc:       json.NewEncoder(file),
	}, nil
}

// Log appends an event to the session log. Timestamps default to now.
func (s *SessionLogger) Log(ev Event) error {
	if s == nil || s.enc == nil {
		return nil
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	return s.enc.Encode(ev)
}

// Close closes the log file.
func (s *SessionLogger) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}

func resolveBaseDir(baseDir, workDir string) string {
	if filepath.IsAbs(baseDir) {
		return filepath.Clean(baseDir)
	}
	return filepath.Clean(filepath.Join(workDir, baseDir))
}

func resolveProjectRoot(workDir string) string {
	if workDir == "" {
		return "."
	}
	if _, err := exec.LookPath("git"); err == nil {
		cmd := exec.Command("git", "-C", workDir, "rev-parse", "--show-toplevel")
		if output, err := cmd.Output(); err == nil {
			root := strings.TrimSpace(string(output))
			if root != "" {
				return root
			}
		}
	}
	return workDir
}

func projectSlug(projectRoot string) string {
	name := filepath.Base(projectRoot)
	slug := slugify(name)
	hash := hashPath(projectRoot)
	return fmt.Sprintf("%s-%s", slug, hash)
}

func slugify(input string) string {
	if strings.TrimSpace(input) == "" {
		return "project"
	}

	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "project"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

func sessionID() string {
	return fmt.Sprintf("%s-%d", time.Now().UTC().Format("20060102-150405"), os.Getpid())
}

// FindLogDir finds the log directory for a given work directory.
func FindLogDir(baseDir, workDir string) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("log base dir is empty")
	}

	resolvedWorkDir := workDir
	if resolvedWorkDir == "" {
		resolvedWorkDir = "."
	}
	if abs, err := filepath.Abs(resolvedWorkDir); err == nil {
		resolvedWorkDir = abs
	}

	baseDir = resolveBaseDir(baseDir, resolvedWorkDir)
	projectRoot := resolveProjectRoot(resolvedWorkDir)
	logDir := filepath.Join(baseDir, projectSlug(projectRoot))

	return logDir, nil
}

// FindLatestLog finds the latest JSONL log file in a directory.
func FindLatestLog(logDir string) (string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read log dir: %w", err)
	}

	var latest string
	var latestTime time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latest = filepath.Join(logDir, name)
		}
	}

	return latest, nil
}

// TailLog tails a log file to a writer, optionally following.
func TailLog(w io.Writer, path string, n int, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// If n > 0, seek to show only last n lines
	if n > 0 {
		if err := tailSeek(file, n); err != nil {
			return fmt.Errorf("seek to tail position: %w", err)
		}
	}

	if follow {
		return tailFollow(w, file)
	}

	// Just dump the rest of the file
	_, err = io.Copy(w, file)
	return err
}

// tailSeek seeks to a position that shows approximately the last n lines.
func tailSeek(file *os.File, n int) error {
	const avgLineLength = 120

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	size := stat.Size()
	if size < avgLineLength*int64(n) {
		// File is small enough, just read from start
		_, err = file.Seek(0, io.SeekStart)
		return err
	}

	// Seek back from end
	offset := size - int64(n*avgLineLength)
	if offset < 0 {
		offset = 0
	}
	_, err = file.Seek(offset, io.SeekStart)
	if err != nil {
		return err
	}

	// Discard partial first line
	buf := make([]byte, 1)
	_, err = file.Read(buf)
	if err != nil {
		return err
	}
	for {
		if buf[0] == '\n' {
			break
		}
		_, err := file.Read(buf)
		if err != nil {
			break
		}
	}

	return nil
}

// tailFollow follows a file like tail -f.
func tailFollow(w io.Writer, file *os.File) error {
	// First, copy existing content
	if _, err := io.Copy(w, file); err != nil {
		return err
	}

	// Then follow for new content
	for {
		_, err := io.Copy(w, file)
		if err != nil {
			return err
		}

		// Wait briefly before checking for more data
		time.Sleep(100 * time.Millisecond)

		// Check if more data is available
		var buf [1]byte
		_, err = file.Read(buf[:])
		if err != nil {
			if err == io.EOF {
				continue
			}
			return err
		}
		// We read a byte, write it and continue copying
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
}
