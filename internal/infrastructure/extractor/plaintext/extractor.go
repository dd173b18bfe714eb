package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// Decoder accepts UTF-8 text and markdown as-is.
type Decoder struct{}

func (Decoder) Decode(_ context.Context, raw []byte) (string, error) {
	raw = trimBOM(raw)
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "decode text", errors.New("content is not valid UTF-8"))
	}
	return strings.TrimSpace(string(raw)), nil
}

func trimBOM(raw []byte) []byte {
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		return raw[3:]
	}
	return raw
}
