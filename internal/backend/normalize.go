package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// decodeOneOrMany accepts either a single JSON object or an array of them.
// Arrays wrapped in a {"data": [...]} envelope are unwrapped too.
func decodeOneOrMany[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	case '{':
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err == nil {
			d := bytes.TrimSpace(env.Data)
			if len(d) > 0 && (d[0] == '[' || d[0] == '{') {
				return decodeOneOrMany[T](d)
			}
		}
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return []T{one}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value %q", truncate(string(raw), 32))
	}
}

// last returns the most recent element of a one-or-many response.
func last[T any](items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[len(items)-1], true
}

// scalarString reads a JSON string or number as text.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}

	return string(raw)
}
