// Package file provides a filesystem StateStore: one JSON document per
// subject, written atomically.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onrampd/onramp/pkg/domain"
)

// Store implements ports.StateStore on the local filesystem. Each subject's
// record lives at <BasePath>/<subjectID>.json.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath. If basePath is empty it defaults
// to ".onramp/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".onramp", "sessions")
	}
	return &Store{BasePath: basePath}
}

// Save persists the record atomically: write to a temp file in the same
// directory, fsync, rename. A concurrent reader sees either the old record
// or the new one, never a partial write.
func (s *Store) Save(ctx context.Context, subjectID string, state *domain.ExecutionState) error {
	if subjectID == "" {
		return fmt.Errorf("subjectID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	destPath := filepath.Join(s.BasePath, subjectID+".json")

	// Temp file must live in the same directory: rename is only atomic
	// within one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+subjectID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to swap session file: %w", err)
	}
	return nil
}

// Load reads the record for a subject.
func (s *Store) Load(ctx context.Context, subjectID string) (*domain.ExecutionState, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("subjectID cannot be empty")
	}

	data, err := os.ReadFile(filepath.Join(s.BasePath, subjectID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var state domain.ExecutionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// Delete removes the record file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return fmt.Errorf("subjectID cannot be empty")
	}

	err := os.Remove(filepath.Join(s.BasePath, subjectID+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns every persisted subject id.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var subjects []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		subjects = append(subjects, strings.TrimSuffix(name, ".json"))
	}
	return subjects, nil
}
