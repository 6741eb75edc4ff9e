// Package storage provides the durable implementations for the ledger
// snapshot document.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/greenledger/greenledger/foundation/ledger"
)

// File stores the snapshot as a single JSON document at a configured
// path. This implements the ledger.Storage interface.
type File struct {
	path string
}

// NewFile constructs a File storage, creating the parent directory when
// needed.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &File{path: path}, nil
}

// Save rewrites the full snapshot document. The write goes through a
// temporary file and a rename so the document on disk is never partially
// written.
func (f *File) Save(snapshot ledger.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// Load reads the snapshot document if one exists.
func (f *File) Load() (ledger.Snapshot, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.Snapshot{}, false, nil
		}
		return ledger.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot ledger.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return ledger.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}

	return snapshot, true, nil
}

// Reset removes the snapshot document from disk.
func (f *File) Reset() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
