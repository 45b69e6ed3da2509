package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// WAL appends raw exposition payloads before they are applied to the store,
// so that an ingest surviving the parser is never lost to a crash between
// parse and persist. Replay pushes the recorded payloads back through the
// parse-and-store path.
type WAL struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// walEntry is a single ingested payload.
type walEntry struct {
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
	Payload   string    `json:"payload"`
}

// NewWAL creates a new write-ahead log under dataPath.
func NewWAL(dataPath string) (*WAL, error) {
	walPath := filepath.Join(dataPath, "wal")
	if err := os.MkdirAll(walPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	filename := filepath.Join(walPath, fmt.Sprintf("wal-%d.log", time.Now().UnixNano()))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	return &WAL{
		path:   walPath,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Append durably records one ingested payload. The entry is flushed and
// synced before Append returns; the store may only mutate afterwards.
func (w *WAL) Append(tenantID, payload string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := walEntry{
		Timestamp: time.Now(),
		TenantID:  tenantID,
		Payload:   payload,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal WAL entry: %w", err)
	}

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write to WAL: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush WAL: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL: %w", err)
	}

	return nil
}

// Close closes the WAL.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

// ReplayWAL replays recorded payloads for recovery, oldest file first, and
// removes each file once its entries have been applied.
func ReplayWAL(dataPath string, handler func(tenantID, payload string) error) error {
	walPath := filepath.Join(dataPath, "wal")

	entries, err := os.ReadDir(walPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No WAL to replay
		}
		return fmt.Errorf("failed to read WAL directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := filepath.Join(walPath, entry.Name())
		if err := replayWALFile(filename, handler); err != nil {
			return fmt.Errorf("failed to replay %s: %w", filename, err)
		}

		os.Remove(filename)
	}

	return nil
}

// replayWALFile replays a single WAL file.
func replayWALFile(filename string, handler func(tenantID, payload string) error) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var entry walEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return fmt.Errorf("failed to unmarshal WAL entry: %w", err)
		}

		if err := handler(entry.TenantID, entry.Payload); err != nil {
			return fmt.Errorf("failed to replay entry: %w", err)
		}
	}

	return scanner.Err()
}
