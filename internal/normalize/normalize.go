package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind declares what a schema key holds, so missing keys get the right
// default.
type Kind int

const (
	KindList Kind = iota
	KindSection
	KindString
)

// Schema lists the required top-level keys of a model response.
type Schema map[string]Kind

// ErrNoJSONFound means the raw text contained no brace-delimited region at
// all.
var ErrNoJSONFound = errors.New("no JSON found in response")

// MalformedJSONError carries the parser's message when the recovered region
// is not valid JSON.
type MalformedJSONError struct {
	Err error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON in response: %v", e.Err)
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// EvaluationSchema is the QA evaluation response shape: eight rubric
// sections plus the summary.
var EvaluationSchema = Schema{
	"greeting":         KindSection,
	"information":      KindSection,
	"hold_procedure":   KindSection,
	"quality_check":    KindSection,
	"unsure_situation": KindSection,
	"closing_script":   KindSection,
	"sound_quality":    KindSection,
	"record_handling":  KindSection,
}

// ExtractionSchema is the entity-extraction response shape.
var ExtractionSchema = Schema{
	"agent_names":       KindList,
	"patient_names":     KindList,
	"test_centers":      KindList,
	"tests_mentioned":   KindList,
	"doctors_mentioned": KindList,
	"contact_info":      KindList,
	"appointment_dates": KindList,
	"departments":       KindList,
	"sentiment":         KindString,
}

// Recover pulls a JSON object out of free-form model text and fills missing
// schema keys with defaults. The candidate region runs from the first '{' to
// the last '}' inclusive; trailing prose containing a later '}' over-captures
// and fails the parse, which is the accepted trade-off of this strategy.
func Recover(raw string, schema Schema) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSONFound
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, &MalformedJSONError{Err: err}
	}

	for key, kind := range schema {
		if _, ok := out[key]; ok {
			continue
		}
		switch kind {
		case KindList:
			out[key] = []any{}
		case KindSection:
			out[key] = map[string]any{}
		case KindString:
			out[key] = ""
		}
	}
	return out, nil
}
