package services

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
)

type CoercionMode string

const (
	CoercionStrict  CoercionMode = "strict"
	CoercionLenient CoercionMode = "lenient"
)

func ParseCoercionMode(raw string) CoercionMode {
	if strings.EqualFold(strings.TrimSpace(raw), string(CoercionLenient)) {
		return CoercionLenient
	}
	return CoercionStrict
}

// Coercer turns client-supplied JSON objects into flat string records.
type Coercer struct {
	Mode CoercionMode
	// ValidateEmail checks the "email" field as an address when non-empty.
	ValidateEmail bool
}

// Row coerces a record body for insertion. Fields come out sorted by key so
// inserts are deterministic.
func (c Coercer) Row(body map[string]any) (records.Row, error) {
	fields, err := c.Fields(body)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	row := make(records.Row, 0, len(keys))
	for _, k := range keys {
		row = append(row, records.Field{Key: k, Value: fields[k]})
	}
	return row, nil
}

// Fields coerces every value to a string. The identifier field is never
// writable and is dropped.
func (c Coercer) Fields(body map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(body))
	for k, v := range body {
		if k == records.IDField {
			continue
		}
		if c.Mode != CoercionLenient {
			if err := validFieldName(k); err != nil {
				return nil, err
			}
		}
		s, err := c.value(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	if c.ValidateEmail && c.Mode != CoercionLenient {
		if addr := strings.TrimSpace(out["email"]); addr != "" {
			if _, err := mail.ParseAddress(addr); err != nil {
				return nil, apierr.BadRequest("invalid_email", fmt.Sprintf("invalid email address %q", addr))
			}
		}
	}
	return out, nil
}

func (c Coercer) value(key string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	}
	if c.Mode != CoercionLenient {
		return "", apierr.BadRequest("invalid_field", fmt.Sprintf("field %q must be a string, number, boolean or null", key))
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v), nil
	}
	return string(raw), nil
}

func validFieldName(k string) error {
	switch {
	case strings.TrimSpace(k) == "":
		return apierr.BadRequest("invalid_field", "field names must not be empty")
	case strings.HasPrefix(k, "$"):
		return apierr.BadRequest("invalid_field", fmt.Sprintf("field %q must not start with $", k))
	case strings.Contains(k, "."):
		return apierr.BadRequest("invalid_field", fmt.Sprintf("field %q must not contain '.'", k))
	}
	return nil
}
