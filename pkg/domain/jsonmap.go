package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a free-form configuration block stored as a JSONB column.
// A nil map means the field is absent.
type JSONMap map[string]any

// Value implements driver.Valuer. Nil maps are stored as SQL NULL.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal json map: %w", err)
	}
	return raw, nil
}

// Scan implements sql.Scanner. Malformed stored JSON yields a nil map rather
// than an error: configuration blocks are non-critical metadata and a corrupt
// blob must not make the whole row unreadable. Callers that need to surface
// the corruption use DecodeJSONMap directly.
func (m *JSONMap) Scan(src any) error {
	decoded, _ := DecodeJSONMap(src)
	*m = decoded
	return nil
}

// DecodeJSONMap parses a raw JSONB value. It returns the decode error so the
// caller can log it before degrading to "field absent".
func DecodeJSONMap(src any) (JSONMap, error) {
	var raw []byte
	switch value := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return nil, fmt.Errorf("unexpected json column type: %T", src)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var m JSONMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal json column: %w", err)
	}
	return m, nil
}

// Clone returns a shallow copy so cached rows can be handed out without
// sharing mutable state.
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return nil
	}
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
