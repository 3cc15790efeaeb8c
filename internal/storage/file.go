package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileBackend keeps the blob in a local file. Writes go to a temp file in the same
// directory and are renamed into place so readers never see a partial blob.
type FileBackend struct {
	path   string
	logger *logrus.Logger
}

func NewFileBackend(path string, logger *logrus.Logger) (*FileBackend, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if path == "" {
		return nil, fmt.Errorf("file backend path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &FileBackend{path: path, logger: logger}, nil
}

func (f *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return data, nil
}

func (f *FileBackend) Write(ctx context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		f.discard(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		f.discard(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		f.discard(tmpName)
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	f.logger.Debugf("Wrote %d bytes to %s", len(data), f.path)
	return nil
}

func (f *FileBackend) discard(tmpName string) {
	if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Warnf("Failed to remove temp file %s: %v", tmpName, err)
	}
}

func (f *FileBackend) Close() error {
	return nil
}
