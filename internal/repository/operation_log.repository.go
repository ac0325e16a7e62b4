package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// OperationLogEntry is one audit record of a download or integration
// attempt. The log is the input to retry-the-failures tooling, so every
// attempt is recorded whether or not it succeeded.
type OperationLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	RunID      uuid.UUID `json:"run_id"`
	Operation  string    `json:"operation"`
	AssetID    string    `json:"asset_id"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	TargetDate string    `json:"target_date,omitempty"`
	Rank       int       `json:"rank,omitempty"`
}

const (
	OperationDownload = "download"
	OperationInsert   = "insert"
)

// OperationLogRepository appends structured entries to a JSONL file.
type OperationLogRepository interface {
	Append(entry OperationLogEntry) error
	List() ([]OperationLogEntry, error)
}

func NewOperationLogRepository(path string) OperationLogRepository {
	return &OperationLogRepositoryHandler{Path: path}
}

type OperationLogRepositoryHandler struct {
	Path string
}

func (h *OperationLogRepositoryHandler) Append(entry OperationLogEntry) error {
	if err := os.MkdirAll(filepath.Dir(h.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	f, err := os.OpenFile(h.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open operation log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal operation log entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append operation log entry: %w", err)
	}
	return nil
}

func (h *OperationLogRepositoryHandler) List() ([]OperationLogEntry, error) {
	data, err := os.ReadFile(h.Path)
	if os.IsNotExist(err) {
		return []OperationLogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}

	entries := []OperationLogEntry{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	for decoder.More() {
		var entry OperationLogEntry
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode operation log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
