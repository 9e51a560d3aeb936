package normalize

import (
	"bytes"
	"encoding/json"
)

// Shape is the layout a read endpoint used for its list of records.
type Shape int

const (
	// ShapeNone means no array could be located; the payload counts as empty.
	ShapeNone Shape = iota
	// ShapeArray is a top-level JSON array.
	ShapeArray
	// ShapeWrapped is an object carrying the array under one of WrapperKeys.
	ShapeWrapped
	// ShapeFirstArray is the fallback: the first array-valued property of an object.
	ShapeFirstArray
)

// WrapperKeys are the known wrapping properties, checked in order.
var WrapperKeys = []string{"vulnerabilities", "data", "results"}

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeWrapped:
		return "wrapped"
	case ShapeFirstArray:
		return "first_array"
	default:
		return "none"
	}
}

type property struct {
	key   string
	value json.RawMessage
}

// DetectShape locates the record array inside payload. Invalid JSON, scalars and
// objects without any array property all report ShapeNone.
func DetectShape(payload []byte) (Shape, []json.RawMessage) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return ShapeNone, nil
	}

	switch payload[0] {
	case '[':
		items, ok := decodeArray(payload)
		if !ok {
			return ShapeNone, nil
		}
		return ShapeArray, items
	case '{':
		props, ok := decodeProperties(payload)
		if !ok {
			return ShapeNone, nil
		}
		for _, key := range WrapperKeys {
			// Later duplicates win, matching encoding/json.
			var found json.RawMessage
			for _, p := range props {
				if p.key == key {
					found = p.value
				}
			}
			if items, ok := decodeArray(found); ok {
				return ShapeWrapped, items
			}
		}
		for _, p := range props {
			if items, ok := decodeArray(p.value); ok {
				return ShapeFirstArray, items
			}
		}
		return ShapeNone, nil
	default:
		return ShapeNone, nil
	}
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// decodeProperties walks a top-level object keeping property order, which a
// map would lose.
func decodeProperties(payload []byte) ([]property, bool) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false
	}

	var props []property
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		props = append(props, property{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	return props, true
}
