package session

import (
	"bytes"
	"encoding/json"
	"math"
)

// Field decoding helpers. Each one accepts any JSON value and falls back to
// the zero value when the type does not match.

func splitObject(data []byte) map[string]json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// decodeBool is true only for a literal JSON true.
func decodeBool(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

func decodeInt(raw json.RawMessage) (int64, bool) {
	if raw == nil {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

// decodeWholeInt is decodeInt that rejects a fractional part.
func decodeWholeInt(raw json.RawMessage) (int64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return decodeInt(raw)
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// take removes key from m and returns its raw value.
func take(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := m[key]
	if ok {
		delete(m, key)
	}
	return raw, ok
}

// mergeObject encodes known over rest. Known keys always win.
func mergeObject(rest map[string]json.RawMessage, known map[string]any) ([]byte, error) {
	out := make(map[string]any, len(rest)+len(known))
	for k, v := range rest {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}
