package rubric

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ScoreEntry is one rubric parameter's awarded score plus the evaluator's
// justification.
type ScoreEntry struct {
	Score  int    `json:"score"`
	Reason string `json:"reason,omitempty"`
}

type Greeting struct {
	GreetProtocol ScoreEntry `json:"greet_protocol"`
	OfferHelp     ScoreEntry `json:"offer_help"`
}

type Information struct {
	ConfirmInfo     ScoreEntry `json:"confirm_info"`
	ConfirmLocation ScoreEntry `json:"confirm_location"`
	ConfirmModality ScoreEntry `json:"confirm_modality"`
	CompleteDetails ScoreEntry `json:"complete_details"`
	InfoWithin1Min  ScoreEntry `json:"info_within_1min"`
}

type HoldProcedure struct {
	ProperHoldScript     ScoreEntry `json:"proper_hold_script"`
	ExtendHoldDisconnect ScoreEntry `json:"extend_hold_disconnect"`
	ReconnectAfter60s    ScoreEntry `json:"reconnect_after_60s"`
}

type QualityCheck struct {
	NoInterrupt     ScoreEntry `json:"no_interrupt"`
	Attentive       ScoreEntry `json:"attentive"`
	NoJargon        ScoreEntry `json:"no_jargon"`
	NoRepetition    ScoreEntry `json:"no_repetition"`
	PoliteCourteous ScoreEntry `json:"polite_courteous"`
	ToneSpeed       ScoreEntry `json:"tone_speed"`
}

type UnsureSituation struct {
	AssureCallback ScoreEntry `json:"assure_callback"`
}

type ClosingScript struct {
	AskFurtherHelp ScoreEntry `json:"ask_further_help"`
	FollowClosing  ScoreEntry `json:"follow_closing"`
	AccurateInfo   ScoreEntry `json:"accurate_info"`
}

type SoundQuality struct {
	ClearConfident ScoreEntry `json:"clear_confident"`
}

type RecordHandling struct {
	AccurateRecord    ScoreEntry `json:"accurate_record"`
	ProperDisposition ScoreEntry `json:"proper_disposition"`
	SpellCheck        ScoreEntry `json:"spell_check"`
}

// Evaluation is a fully validated QA scorecard. TotalScore is always the
// recomputed sum over all parameters; New never trusts a submitted total.
type Evaluation struct {
	TranscriptSummary string          `json:"transcript_summary,omitempty"`
	Greeting          Greeting        `json:"greeting"`
	Information       Information     `json:"information"`
	HoldProcedure     HoldProcedure   `json:"hold_procedure"`
	QualityCheck      QualityCheck    `json:"quality_check"`
	UnsureSituation   UnsureSituation `json:"unsure_situation"`
	ClosingScript     ClosingScript   `json:"closing_script"`
	SoundQuality      SoundQuality    `json:"sound_quality"`
	RecordHandling    RecordHandling  `json:"record_handling"`
	TotalScore        int             `json:"total_score"`
}

// ValidationError reports which rubric parameter failed and why.
type ValidationError struct {
	Category  string
	Parameter string
	Message   string
}

func (e *ValidationError) Error() string {
	if e.Parameter != "" {
		return fmt.Sprintf("%s.%s: %s", e.Category, e.Parameter, e.Message)
	}
	return e.Message
}

// rule describes one rubric parameter: its legal score set and where its
// entry lives on Evaluation. Allowed nil means the continuous range Min..Max.
type rule struct {
	category  string
	parameter string
	allowed   []int
	min, max  int
	entry     func(*Evaluation) *ScoreEntry
}

// rules is the fixed traversal order of the rubric. Parameter caps sum to
// exactly 100.
var rules = []rule{
	{category: "greeting", parameter: "greet_protocol", allowed: []int{0, 1, 3, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.Greeting.GreetProtocol }},
	{category: "greeting", parameter: "offer_help", allowed: []int{0, 2},
		entry: func(e *Evaluation) *ScoreEntry { return &e.Greeting.OfferHelp }},
	{category: "information", parameter: "confirm_info", allowed: []int{0, 1, 3},
		entry: func(e *Evaluation) *ScoreEntry { return &e.Information.ConfirmInfo }},
	{category: "information", parameter: "confirm_location", allowed: []int{0, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.Information.ConfirmLocation }},
	{category: "information", parameter: "confirm_modality", allowed: []int{0, 2, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.Information.ConfirmModality }},
	{category: "information", parameter: "complete_details", allowed: []int{0, 2},
		entry: func(e *Evaluation) *ScoreEntry { return &e.Information.CompleteDetails }},
	{category: "information", parameter: "info_within_1min", allowed: []int{0, 2},
		entry: func(e *Evaluation) *ScoreEntry { return &e.Information.InfoWithin1Min }},
	{category: "hold_procedure", parameter: "proper_hold_script", allowed: []int{0, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.HoldProcedure.ProperHoldScript }},
	{category: "hold_procedure", parameter: "extend_hold_disconnect", allowed: []int{0, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.HoldProcedure.ExtendHoldDisconnect }},
	{category: "hold_procedure", parameter: "reconnect_after_60s", allowed: []int{0, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.HoldProcedure.ReconnectAfter60s }},
	{category: "quality_check", parameter: "no_interrupt", allowed: []int{0, 2},
		entry: func(e *Evaluation) *ScoreEntry { return &e.QualityCheck.NoInterrupt }},
	{category: "quality_check", parameter: "attentive", allowed: []int{0, 1, 3},
		entry: func(e *Evaluation) *ScoreEntry { return &e.QualityCheck.Attentive }},
	{category: "quality_check", parameter: "no_jargon", allowed: []int{0, 2},
		entry: func(e *Evaluation) *ScoreEntry { return &e.QualityCheck.NoJargon }},
	{category: "quality_check", parameter: "no_repetition", allowed: []int{0, 1, 2},
		entry: func(e *Evaluation) *ScoreEntry { return &e.QualityCheck.NoRepetition }},
	{category: "quality_check", parameter: "polite_courteous", allowed: []int{1, 3, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.QualityCheck.PoliteCourteous }},
	{category: "quality_check", parameter: "tone_speed", allowed: []int{1, 3, 5},
		entry: func(e *Evaluation) *ScoreEntry { return &e.QualityCheck.ToneSpeed }},
	{category: "unsure_situation", parameter: "assure_callback", allowed: []int{0, 3, 5},
		entry: func(e *Evaluation) *ScoreEntry { return &e.UnsureSituation.AssureCallback }},
	{category: "closing_script", parameter: "ask_further_help", allowed: []int{0, 3},
		entry: func(e *Evaluation) *ScoreEntry { return &e.ClosingScript.AskFurtherHelp }},
	{category: "closing_script", parameter: "follow_closing", allowed: []int{0, 3},
		entry: func(e *Evaluation) *ScoreEntry { return &e.ClosingScript.FollowClosing }},
	{category: "closing_script", parameter: "accurate_info", allowed: []int{0, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.ClosingScript.AccurateInfo }},
	{category: "sound_quality", parameter: "clear_confident", allowed: []int{1, 3, 4},
		entry: func(e *Evaluation) *ScoreEntry { return &e.SoundQuality.ClearConfident }},
	{category: "record_handling", parameter: "accurate_record", min: 0, max: 10,
		entry: func(e *Evaluation) *ScoreEntry { return &e.RecordHandling.AccurateRecord }},
	{category: "record_handling", parameter: "proper_disposition", min: 0, max: 10,
		entry: func(e *Evaluation) *ScoreEntry { return &e.RecordHandling.ProperDisposition }},
	{category: "record_handling", parameter: "spell_check", min: 0, max: 10,
		entry: func(e *Evaluation) *ScoreEntry { return &e.RecordHandling.SpellCheck }},
}

func (r rule) allows(score int) bool {
	if r.allowed == nil {
		return score >= r.min && score <= r.max
	}
	for _, v := range r.allowed {
		if v == score {
			return true
		}
	}
	return false
}

func (r rule) legalSet() string {
	if r.allowed == nil {
		return fmt.Sprintf("an integer between %d and %d", r.min, r.max)
	}
	parts := make([]string, len(r.allowed))
	for i, v := range r.allowed {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "one of {" + strings.Join(parts, ", ") + "}"
}

// Categories returns the fixed category names in traversal order.
func Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rules {
		if !seen[r.category] {
			seen[r.category] = true
			out = append(out, r.category)
		}
	}
	return out
}

// CategoryTotals sums the parameter scores of each category.
func CategoryTotals(e *Evaluation) map[string]int {
	out := map[string]int{}
	for _, r := range rules {
		out[r.category] += r.entry(e).Score
	}
	return out
}

// CategoryCaps returns the maximum attainable score per category. The caps
// sum to 100 across all categories.
func CategoryCaps() map[string]int {
	out := map[string]int{}
	for _, r := range rules {
		out[r.category] += r.cap()
	}
	return out
}

func (r rule) cap() int {
	if r.allowed == nil {
		return r.max
	}
	m := r.allowed[0]
	for _, v := range r.allowed[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// New validates a raw evaluation mapping against the rubric and builds an
// Evaluation. Any missing parameter or out-of-set score fails the whole
// construction; no partial evaluation is ever returned. The submitted
// total_score, if any, is discarded and recomputed.
func New(raw map[string]any) (*Evaluation, error) {
	for _, r := range rules {
		section, ok := raw[r.category].(map[string]any)
		if !ok {
			return nil, &ValidationError{Category: r.category, Parameter: r.parameter,
				Message: "category missing or not an object"}
		}
		entryAny, ok := section[r.parameter]
		if !ok {
			return nil, &ValidationError{Category: r.category, Parameter: r.parameter,
				Message: "parameter missing"}
		}
		entry, ok := entryAny.(map[string]any)
		if !ok {
			return nil, &ValidationError{Category: r.category, Parameter: r.parameter,
				Message: "parameter is not an object"}
		}
		score, ok := intScore(entry["score"])
		if !ok {
			return nil, &ValidationError{Category: r.category, Parameter: r.parameter,
				Message: "score missing or not an integer"}
		}
		if !r.allows(score) {
			return nil, &ValidationError{Category: r.category, Parameter: r.parameter,
				Message: fmt.Sprintf("score must be %s, got %d", r.legalSet(), score)}
		}
	}

	// never trust an externally supplied total
	clean := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "total_score" {
			continue
		}
		clean[k] = v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("encode evaluation: %v", err)}
	}
	var ev Evaluation
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("decode evaluation: %v", err)}
	}
	ev.TotalScore = ComputeTotal(&ev)
	if ev.TotalScore > 100 {
		return nil, &ValidationError{Message: fmt.Sprintf("total_score %d exceeds 100", ev.TotalScore)}
	}
	return &ev, nil
}

// ComputeTotal sums every parameter score in the fixed traversal order.
// Pure function of the evaluation.
func ComputeTotal(e *Evaluation) int {
	total := 0
	for _, r := range rules {
		total += r.entry(e).Score
	}
	return total
}

// ValidateTotal cross-checks a stored or externally built evaluation's total
// against the recomputed sum.
func ValidateTotal(e *Evaluation) error {
	want := ComputeTotal(e)
	if e.TotalScore != want {
		return &ValidationError{Message: fmt.Sprintf("total_score %d does not match calculated total %d", e.TotalScore, want)}
	}
	if e.TotalScore > 100 {
		return &ValidationError{Message: fmt.Sprintf("total_score %d exceeds 100", e.TotalScore)}
	}
	return nil
}

// Validate re-checks every parameter of an already built Evaluation against
// its legal score set, then the total.
func Validate(e *Evaluation) error {
	for _, r := range rules {
		score := r.entry(e).Score
		if !r.allows(score) {
			return &ValidationError{Category: r.category, Parameter: r.parameter,
				Message: fmt.Sprintf("score must be %s, got %d", r.legalSet(), score)}
		}
	}
	return ValidateTotal(e)
}

func intScore(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
