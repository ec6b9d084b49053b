// Package store persists pipeline records as append-only JSONL logs.
//
// One self-contained JSON object per line, UTF-8, append-only. Readers only
// assume "last write wins per key" during resume reconciliation. A single
// process owns each log; concurrent writers are not supported.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppetrov/pairbench/internal/model"
)

// Record is a row persisted in a log
type Record interface {
	// Key identifies the record for idempotent-resume reconciliation
	Key() string

	// Succeeded reports whether the record counts as done (failed records
	// stay in the log but remain eligible for retry on resume)
	Succeeded() bool
}

// Log is a typed append-only JSONL record file
type Log[T Record] struct {
	path string
}

// NewLog creates a log handle for the given path
func NewLog[T Record](path string) *Log[T] {
	return &Log[T]{path: path}
}

// Path returns the backing file path
func (l *Log[T]) Path() string { return l.path }

// Read returns every record in file order. A missing file yields no records;
// a malformed line is a ParseError.
func (l *Log[T]) Read() ([]T, error) {
	return ReadLines[T](l.path)
}

// SuccessfulKeys returns the set of keys whose latest record succeeded.
// A key whose latest record failed is dropped so resume retries it.
func (l *Log[T]) SuccessfulKeys() (map[string]struct{}, error) {
	recs, err := l.Read()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if rec.Succeeded() {
			keys[rec.Key()] = struct{}{}
		} else {
			delete(keys, rec.Key())
		}
	}
	return keys, nil
}

// Count returns the number of records, 0 for a missing file
func (l *Log[T]) Count() (int, error) {
	recs, err := l.Read()
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// CountSuccessful returns the number of successful records
func (l *Log[T]) CountSuccessful() (int, error) {
	keys, err := l.SuccessfulKeys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// OpenAppender opens the log for appending, creating parent directories
func (l *Log[T]) OpenAppender() (*Appender[T], error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return &Appender[T]{f: f}, nil
}

// Appender writes records one line at a time. Every Append flushes to disk
// so an interruption loses at most the single in-flight record.
type Appender[T Record] struct {
	f *os.File
}

// Append marshals the record, writes one line, and syncs
func (a *Appender[T]) Append(rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')
	if _, err := a.f.Write(data); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}

// Close closes the underlying file
func (a *Appender[T]) Close() error {
	return a.f.Close()
}

// ReadLines reads a JSONL file into typed rows, skipping blank lines.
// A missing file yields no rows.
func ReadLines[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, &model.ParseError{
				Field:  fmt.Sprintf("%s:%d", filepath.Base(path), lineNo),
				Reason: err.Error(),
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return rows, nil
}
