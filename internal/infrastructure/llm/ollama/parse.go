package ollama

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// parseAnalysis accepts kvps either as [{key, value}] or as a flat object; object order
// is preserved by walking the token stream.
func parseAnalysis(raw string) (domain.Analysis, error) {
	var envelope struct {
		Category string          `json:"category"`
		KVPs     json.RawMessage `json:"kvps"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &envelope); err != nil {
		return domain.Analysis{}, fmt.Errorf("parse analysis json: %w", err)
	}

	kvs, err := decodeKVPs(envelope.KVPs)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("parse analysis kvps: %w", err)
	}
	return domain.Analysis{
		Category:  strings.TrimSpace(envelope.Category),
		KeyValues: kvs,
	}, nil
}

func decodeKVPs(raw json.RawMessage) ([]domain.KeyValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []domain.KeyValue{}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		out := make([]domain.KeyValue, 0, len(items))
		for _, item := range items {
			out = append(out, domain.KeyValue{Key: item.Key, Value: scalarString(item.Value)})
		}
		return out, nil
	case '{':
		return decodeOrderedObject(trimmed)
	default:
		return nil, errors.New("kvps must be an array or an object")
	}
}

func decodeOrderedObject(raw []byte) ([]domain.KeyValue, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	out := make([]domain.KeyValue, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, domain.KeyValue{Key: key, Value: scalarString(value)})
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return out, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
