package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Scalar reduces a filter value to the JSON scalar it is stored as, so that
// a Timestamp compares as its string form and numbers as numbers.
func Scalar(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: value %v: %v", ErrInvalidQuery, v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: value %v: %v", ErrInvalidQuery, v, err)
	}
	switch t := out.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %s", ErrInvalidQuery, t)
		}
		return f, nil
	case string, bool, nil:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: value %v is not a scalar", ErrInvalidQuery, v)
	}
}

// Marshal encodes doc as a JSON object.
func Marshal(doc any) ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("encode document: not a JSON object")
	}
	return b, nil
}
