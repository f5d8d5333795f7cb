package personalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Shape is the structural form of a suggestion payload.
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeArray
	ShapeObjectWithArrayField
	ShapeSingleObject
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeObjectWithArrayField:
		return "object_with_array_field"
	case ShapeSingleObject:
		return "single_object"
	default:
		return "empty"
	}
}

// Suggestion is one recommendation as delivered by the service. It is either a
// full or partial catalog payload, or a bare identifier wrapped as {"id": ...}.
type Suggestion map[string]any

// catalogIDFields lists the fields that may carry a catalog identifier.
var catalogIDFields = []string{"id", "experience_id", "experienceId", "product_id"}

// preferredListFields are checked first when an object wraps the list.
var preferredListFields = []string{"suggestions", "results", "recommendations", "items", "data", "key"}

// CatalogID returns the embedded catalog identifier, if any.
func (s Suggestion) CatalogID() string {
	for _, field := range catalogIDFields {
		if id := scalarString(s[field]); id != "" {
			return id
		}
	}
	return ""
}

// Classify reports the payload shape and returns its items in canonical form.
func Classify(raw []byte) (Shape, []Suggestion, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ShapeEmpty, nil, nil
	}

	switch trimmed[0] {
	case '[':
		var arr []any
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return ShapeEmpty, nil, err
		}
		return ShapeArray, fromList(arr), nil
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return ShapeEmpty, nil, err
		}
		if list, ok := arrayField(obj); ok {
			return ShapeObjectWithArrayField, fromList(list), nil
		}
		if len(obj) == 0 {
			return ShapeEmpty, nil, nil
		}
		return ShapeSingleObject, []Suggestion{Suggestion(obj)}, nil
	default:
		return ShapeEmpty, nil, fmt.Errorf("unsupported suggestion payload starting with %q", trimmed[0])
	}
}

// NormalizeSuggestions collapses any supported shape into a suggestion list.
func NormalizeSuggestions(raw []byte) ([]Suggestion, error) {
	_, items, err := Classify(raw)
	return items, err
}

func arrayField(obj map[string]any) ([]any, bool) {
	for _, key := range preferredListFields {
		if list, ok := obj[key].([]any); ok {
			return list, true
		}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if list, ok := obj[k].([]any); ok {
			return list, true
		}
	}
	return nil, false
}

func fromList(list []any) []Suggestion {
	out := make([]Suggestion, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, Suggestion(v))
		case string:
			if id := strings.TrimSpace(v); id != "" {
				out = append(out, Suggestion{"id": id})
			}
		case float64:
			out = append(out, Suggestion{"id": strconv.FormatFloat(v, 'f', -1, 64)})
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
