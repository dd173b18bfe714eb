package domain

import (
	"fmt"
	"strings"
)

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NormalizeKeyValues trims keys, drops entries with an empty key and keeps only the last
// occurrence of a duplicated key, at the position of that occurrence.
func NormalizeKeyValues(in []KeyValue) []KeyValue {
	lastIndex := make(map[string]int, len(in))
	for i, kv := range in {
		key := strings.TrimSpace(kv.Key)
		if key == "" {
			continue
		}
		lastIndex[key] = i
	}

	out := make([]KeyValue, 0, len(lastIndex))
	for i, kv := range in {
		key := strings.TrimSpace(kv.Key)
		if key == "" || lastIndex[key] != i {
			continue
		}
		out = append(out, KeyValue{Key: key, Value: strings.TrimSpace(kv.Value)})
	}
	return out
}

func ValidateKeyValues(kvs []KeyValue) error {
	seen := make(map[string]struct{}, len(kvs))
	for i, kv := range kvs {
		if strings.TrimSpace(kv.Key) == "" {
			return fmt.Errorf("kv_data[%d]: empty key", i)
		}
		if _, ok := seen[kv.Key]; ok {
			return fmt.Errorf("kv_data[%d]: duplicate key %q", i, kv.Key)
		}
		seen[kv.Key] = struct{}{}
	}
	return nil
}
