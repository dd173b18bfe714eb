// Package wordml extracts paragraph text from DOCX (WordprocessingML) files.
package wordml

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const (
	mainPart        = "word/document.xml"
	defaultMaxBytes = 32 << 20
)

var errPartTooLarge = errors.New(mainPart + " exceeds the size limit")

// Decoder reads at most MaxBytes of decompressed body; zero means 32 MiB.
type Decoder struct {
	MaxBytes int64
}

func (d Decoder) Decode(_ context.Context, raw []byte) (string, error) {
	limit := d.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "decode docx", err)
	}
	for _, f := range zr.File {
		if f.Name != mainPart {
			continue
		}
		if f.UncompressedSize64 > uint64(limit) {
			return "", domain.WrapError(domain.ErrInvalidInput, "decode docx", errPartTooLarge)
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", mainPart, err)
		}
		defer rc.Close()
		return paragraphs(&boundedReader{r: rc, left: limit + 1})
	}
	return "", domain.WrapError(domain.ErrInvalidInput, "decode docx", errors.New("missing "+mainPart))
}

// paragraphs walks the body token stream: w:t carries text, w:tab and w:br are
// whitespace, and w:p closes a line.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "decode docx", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					out.WriteString(s)
					out.WriteByte('\n')
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// boundedReader fails once more than the allowed bytes have been read, whatever the
// zip header claims.
type boundedReader struct {
	r    io.Reader
	left int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.left <= 0 {
		return 0, errPartTooLarge
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.r.Read(p)
	b.left -= int64(n)
	return n, err
}
