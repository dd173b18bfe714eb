package wordml

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

func docxWithBody(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(mainPart)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, _ = io.WriteString(w, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+body+`</w:body></w:document>`)
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestDecodeRejectsOversizedBody(t *testing.T) {
	// Highly compressible, so the archive itself stays small.
	raw := docxWithBody(t, "<w:p><w:r><w:t>"+strings.Repeat("A", 1<<20)+"</w:t></w:r></w:p>")
	if len(raw) > 64<<10 {
		t.Fatalf("expected a compact archive, got %d bytes", len(raw))
	}

	_, err := Decoder{MaxBytes: 64 << 10}.Decode(context.Background(), raw)
	if !errors.Is(err, domain.ErrInvalidInput) || !errors.Is(err, errPartTooLarge) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestDecodeWithinLimit(t *testing.T) {
	raw := docxWithBody(t, "<w:p><w:r><w:t>Total</w:t><w:tab/><w:t>42</w:t></w:r></w:p>")

	text, err := Decoder{MaxBytes: 4 << 10}.Decode(context.Background(), raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if text != "Total\t42" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestBoundedReaderStopsPastLimit(t *testing.T) {
	exact := &boundedReader{r: strings.NewReader("12345"), left: 5 + 1}
	if got, err := io.ReadAll(exact); err != nil || string(got) != "12345" {
		t.Fatalf("exact size must pass, got %q %v", got, err)
	}

	over := &boundedReader{r: strings.NewReader("123456"), left: 5 + 1}
	if _, err := io.ReadAll(over); !errors.Is(err, errPartTooLarge) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}
