package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// Storage keeps blobs on disk under their content address. Keys look like
// "sha256/<hex>" and are fanned out by the first two hex characters.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Save writes data under key. Writing an existing key is a no-op: the content is the same.
func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		_, _ = io.Copy(io.Discard, data)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open blob", fmt.Errorf("key=%s", key))
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) pathFor(key string) (string, error) {
	algo, digest, ok := strings.Cut(key, "/")
	if !ok || algo == "" || len(digest) < 3 || strings.ContainsAny(digest, `/\.`) || strings.ContainsAny(algo, `/\.`) {
		return "", domain.WrapError(domain.ErrInvalidInput, "blob key", fmt.Errorf("malformed key %q", key))
	}
	return filepath.Join(s.basePath, algo, digest[:2], digest), nil
}
