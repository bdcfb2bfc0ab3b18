package rubric

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const validEvaluationJSON = `{
  "transcript_summary": "Routine appointment confirmation call",
  "greeting": {
    "greet_protocol": {"score": 4, "reason": "full greeting"},
    "offer_help": {"score": 2, "reason": "offered help"}
  },
  "information": {
    "confirm_info": {"score": 3},
    "confirm_location": {"score": 4},
    "confirm_modality": {"score": 4},
    "complete_details": {"score": 2},
    "info_within_1min": {"score": 2}
  },
  "hold_procedure": {
    "proper_hold_script": {"score": 4},
    "extend_hold_disconnect": {"score": 4},
    "reconnect_after_60s": {"score": 4}
  },
  "quality_check": {
    "no_interrupt": {"score": 2},
    "attentive": {"score": 3},
    "no_jargon": {"score": 2},
    "no_repetition": {"score": 2},
    "polite_courteous": {"score": 3},
    "tone_speed": {"score": 3}
  },
  "unsure_situation": {
    "assure_callback": {"score": 5}
  },
  "closing_script": {
    "ask_further_help": {"score": 3},
    "follow_closing": {"score": 3},
    "accurate_info": {"score": 4}
  },
  "sound_quality": {
    "clear_confident": {"score": 3}
  },
  "record_handling": {
    "accurate_record": {"score": 8},
    "proper_disposition": {"score": 9},
    "spell_check": {"score": 7}
  },
  "total_score": 90
}`

// manual sum of the scores above
const validEvaluationTotal = 90

func validRaw(t *testing.T) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(validEvaluationJSON), &raw))
	return raw
}

func setScore(t *testing.T, raw map[string]any, category, parameter string, score any) {
	t.Helper()
	section, ok := raw[category].(map[string]any)
	require.True(t, ok, "category %s", category)
	section[parameter] = map[string]any{"score": score}
}

func TestNew_ValidEvaluation(t *testing.T) {
	req := require.New(t)

	ev, err := New(validRaw(t))
	req.NoError(err)
	req.Equal(validEvaluationTotal, ev.TotalScore)
	req.Equal(4, ev.Greeting.GreetProtocol.Score)
	req.Equal("full greeting", ev.Greeting.GreetProtocol.Reason)
	req.Equal(7, ev.RecordHandling.SpellCheck.Score)
	req.Equal("Routine appointment confirmation call", ev.TranscriptSummary)
}

func TestNew_IgnoresSubmittedTotal(t *testing.T) {
	req := require.New(t)

	raw := validRaw(t)
	raw["total_score"] = float64(42)
	ev, err := New(raw)
	req.NoError(err)
	req.Equal(validEvaluationTotal, ev.TotalScore)
}

func TestNew_RejectsIllegalScores(t *testing.T) {
	cases := []struct {
		category  string
		parameter string
		score     int
	}{
		{"greeting", "greet_protocol", 2},
		{"greeting", "offer_help", 1},
		{"information", "confirm_info", 2},
		{"information", "confirm_location", 3},
		{"information", "confirm_modality", 1},
		{"quality_check", "attentive", 2},
		{"quality_check", "no_repetition", 3},
		{"quality_check", "polite_courteous", 0},
		{"quality_check", "tone_speed", 2},
		{"unsure_situation", "assure_callback", 4},
		{"closing_script", "accurate_info", 2},
		{"sound_quality", "clear_confident", 0},
		{"record_handling", "accurate_record", 11},
		{"record_handling", "spell_check", -1},
	}
	for _, tc := range cases {
		t.Run(tc.category+"."+tc.parameter, func(t *testing.T) {
			req := require.New(t)

			raw := validRaw(t)
			setScore(t, raw, tc.category, tc.parameter, tc.score)
			_, err := New(raw)
			req.Error(err)

			var verr *ValidationError
			req.ErrorAs(err, &verr)
			req.Equal(tc.category, verr.Category)
			req.Equal(tc.parameter, verr.Parameter)
		})
	}
}

func TestNew_AcceptsBoundaryScores(t *testing.T) {
	req := require.New(t)

	raw := validRaw(t)
	setScore(t, raw, "quality_check", "tone_speed", 5)
	setScore(t, raw, "record_handling", "accurate_record", 0)
	setScore(t, raw, "record_handling", "proper_disposition", 10)
	ev, err := New(raw)
	req.NoError(err)
	req.Equal(ComputeTotal(ev), ev.TotalScore)
}

func TestNew_MissingParameter(t *testing.T) {
	req := require.New(t)

	raw := validRaw(t)
	delete(raw["greeting"].(map[string]any), "offer_help")
	_, err := New(raw)

	var verr *ValidationError
	req.ErrorAs(err, &verr)
	req.Equal("greeting", verr.Category)
	req.Equal("offer_help", verr.Parameter)
	req.Contains(verr.Error(), "missing")
}

func TestNew_MissingCategory(t *testing.T) {
	req := require.New(t)

	raw := validRaw(t)
	delete(raw, "hold_procedure")
	_, err := New(raw)

	var verr *ValidationError
	req.ErrorAs(err, &verr)
	req.Equal("hold_procedure", verr.Category)
}

func TestNew_NonIntegerScore(t *testing.T) {
	req := require.New(t)

	raw := validRaw(t)
	setScore(t, raw, "quality_check", "attentive", 2.5)
	_, err := New(raw)

	var verr *ValidationError
	req.ErrorAs(err, &verr)
	req.Contains(verr.Error(), "integer")
}

func TestComputeTotal_Idempotent(t *testing.T) {
	req := require.New(t)

	ev, err := New(validRaw(t))
	req.NoError(err)
	first := ComputeTotal(ev)
	for i := 0; i < 5; i++ {
		req.Equal(first, ComputeTotal(ev))
	}
}

func TestValidateTotal(t *testing.T) {
	req := require.New(t)

	ev, err := New(validRaw(t))
	req.NoError(err)
	req.NoError(ValidateTotal(ev))

	ev.TotalScore++
	err = ValidateTotal(ev)
	req.Error(err)
	req.Contains(err.Error(), "does not match")
}

func TestValidateTotal_RejectsOver100(t *testing.T) {
	req := require.New(t)

	ev, err := New(validRaw(t))
	req.NoError(err)

	// out-of-range mutation with a matching total still fails the cap check
	ev.RecordHandling.AccurateRecord.Score += 20
	ev.TotalScore = ComputeTotal(ev)
	err = ValidateTotal(ev)
	req.Error(err)
	req.Contains(err.Error(), "exceeds 100")
}

func TestCategoryTotals(t *testing.T) {
	req := require.New(t)

	ev, err := New(validRaw(t))
	req.NoError(err)

	totals := CategoryTotals(ev)
	req.Equal(6, totals["greeting"])
	req.Equal(15, totals["information"])
	req.Equal(12, totals["hold_procedure"])
	req.Equal(15, totals["quality_check"])
	req.Equal(5, totals["unsure_situation"])
	req.Equal(10, totals["closing_script"])
	req.Equal(3, totals["sound_quality"])
	req.Equal(24, totals["record_handling"])

	sum := 0
	for _, v := range totals {
		sum += v
	}
	req.Equal(ev.TotalScore, sum)
}

func TestCategoryCaps(t *testing.T) {
	req := require.New(t)

	caps := CategoryCaps()
	req.Equal(map[string]int{
		"greeting":         6,
		"information":      15,
		"hold_procedure":   12,
		"quality_check":    18,
		"unsure_situation": 5,
		"closing_script":   10,
		"sound_quality":    4,
		"record_handling":  30,
	}, caps)

	sum := 0
	for _, v := range caps {
		sum += v
	}
	req.Equal(100, sum)
}

func TestValidate_CatchesMutation(t *testing.T) {
	req := require.New(t)

	ev, err := New(validRaw(t))
	req.NoError(err)
	req.NoError(Validate(ev))

	// out-of-set mutation after construction
	ev.QualityCheck.Attentive.Score = 2
	req.Error(Validate(ev))
}

func TestFallback(t *testing.T) {
	req := require.New(t)

	ev := Fallback("model returned garbage")
	req.NoError(Validate(ev))
	req.Equal(15, ev.TotalScore) // hold NA 12 + three minimum-1 parameters
	req.Contains(ev.TranscriptSummary, "model returned garbage")
	req.Equal(4, ev.HoldProcedure.ProperHoldScript.Score)
	req.Equal(1, ev.QualityCheck.PoliteCourteous.Score)
}

func TestCategories_FixedOrder(t *testing.T) {
	require.Equal(t, []string{
		"greeting", "information", "hold_procedure", "quality_check",
		"unsure_situation", "closing_script", "sound_quality", "record_handling",
	}, Categories())
}
