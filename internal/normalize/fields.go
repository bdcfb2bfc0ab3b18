package normalize

import (
	"encoding/json"
	"fmt"

	"call-qa-go/internal/types"
)

// Fields recovers an entity-extraction record from raw model output. The
// model sometimes returns a bare string where a list is documented, so every
// list field is coerced to a string slice; a list-valued sentiment collapses
// to its first element.
func Fields(raw string) (types.ExtractedFields, error) {
	m, err := Recover(raw, ExtractionSchema)
	if err != nil {
		return types.EmptyFields(err.Error()), err
	}

	for key, kind := range ExtractionSchema {
		switch kind {
		case KindList:
			m[key] = toStringList(m[key])
		case KindString:
			m[key] = toStringScalar(m[key])
		}
	}

	data, err := json.Marshal(m)
	if err != nil {
		return types.EmptyFields(err.Error()), err
	}
	var out types.ExtractedFields
	if err := json.Unmarshal(data, &out); err != nil {
		return types.EmptyFields(err.Error()), err
	}
	return out, nil
}

func toStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, stringify(item))
		}
		return out
	case []string:
		return val
	default:
		return []string{stringify(val)}
	}
}

func toStringScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		if len(val) == 0 {
			return ""
		}
		return stringify(val[0])
	default:
		return stringify(val)
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
