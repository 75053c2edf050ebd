package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fintrack/internal/core"
)

// JSONFile stores the whole transaction collection as one indented JSON
// array. Every Save rewrites the document in full.
type JSONFile struct {
	path string
}

func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the location of the backing document.
func (f *JSONFile) Path() string {
	return f.path
}

// Load reads the full collection. A missing file is created empty and an
// empty or whitespace-only file yields an empty collection.
func (f *JSONFile) Load(_ context.Context) ([]core.Transaction, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := f.createEmpty(); err != nil {
			return []core.Transaction{}, fmt.Errorf("create data file %s: %w", f.path, err)
		}
		return []core.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file %s: %w", f.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []core.Transaction{}, nil
	}

	var txs []core.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", f.path, err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

func (f *JSONFile) createEmpty() error {
	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(f.path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	return file.Close()
}

// Save replaces the document with txs. The data is written to a temporary
// file in the same directory and renamed into place, so a failed save leaves
// the previous document intact.
func (f *JSONFile) Save(_ context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.MarshalIndent(txs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("replace data file %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Save.
func (f *JSONFile) Close() error {
	return nil
}
