package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

func TestSaveAndOpenContentAddressedBlob(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := "sha256/abcdef0123"

	if err := s.Save(context.Background(), key, strings.NewReader("hello")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sha256", "ab", "abcdef0123")); err != nil {
		t.Fatalf("expected fanned-out path: %v", err)
	}
	// Same key again keeps the first write.
	if err := s.Save(context.Background(), key, strings.NewReader("ignored")); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	rc, err := s.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	if string(raw) != "hello" {
		t.Fatalf("expected hello, got %q", raw)
	}
}

func TestOpenMissingBlob(t *testing.T) {
	s, _ := New(t.TempDir())
	_, err := s.Open(context.Background(), "sha256/ffff00")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s, _ := New(t.TempDir())
	for _, key := range []string{"../etc/passwd", "sha256/../../x", "plain", "sha256/a"} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid key error for %q, got %v", key, err)
		}
	}
}
