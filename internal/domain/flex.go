package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt decodes from a JSON number or a numeric string.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("flexint: %w", err)
		}
		*n = FlexInt(v)
		return nil
	}

	var f json.Number
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}

	v, err := strconv.ParseInt(f.String(), 10, 64)
	if err != nil {
		fv, ferr := strconv.ParseFloat(f.String(), 64)
		if ferr != nil || fv != float64(int64(fv)) {
			return fmt.Errorf("flexint: %w", err)
		}
		v = int64(fv)
	}
	*n = FlexInt(v)

	return nil
}

// FlexFloat decodes from a JSON number or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("flexfloat: %w", err)
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)

	return nil
}

// FlexStrings decodes from a JSON array or a comma separated string.
// Numbers inside an array are kept in their literal form.
type FlexStrings []string

func (s *FlexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		*s = SplitList(raw)
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		var v string
		if err := json.Unmarshal(it, &v); err == nil {
			out = append(out, v)
			continue
		}
		out = append(out, string(bytes.TrimSpace(it)))
	}
	*s = out

	return nil
}

// SplitList splits a comma separated list, trimming each entry and
// dropping empty ones. Order is preserved.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
