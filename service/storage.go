package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStorage stores and retrieves uploaded PDF bytes, keyed by
// object name.
type FileStorage interface {
	Save(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Open(ctx context.Context, objectName string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectName string) error
}

// LocalStorage keeps uploaded files on the local filesystem, one file
// per object name under a single directory.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) Save(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) error {
	path := filepath.Join(s.dir, objectName)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Open(_ context.Context, objectName string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, objectName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *LocalStorage) Delete(_ context.Context, objectName string) error {
	if err := os.Remove(filepath.Join(s.dir, objectName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
