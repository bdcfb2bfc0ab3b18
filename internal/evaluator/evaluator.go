package evaluator

import (
	"context"
	"fmt"

	"call-qa-go/internal/llm"
	"call-qa-go/internal/logger"
	"call-qa-go/internal/normalize"
	"call-qa-go/internal/rubric"
)

// Evaluate scores one transcript against the QA rubric. The model's own
// total_score is never trusted; rubric.New recomputes it. Callers that need
// to keep going on a ValidationError can use rubric.Fallback.
func Evaluate(ctx context.Context, client llm.Client, transcript string) (*rubric.Evaluation, error) {
	log := logger.Component("evaluator")
	log.WithField("transcript_len", len(transcript)).Info("starting qa evaluation")

	resp, err := client.GenerateText(ctx, BuildPrompt(transcript))
	if err != nil {
		return nil, err
	}

	raw, err := normalize.Recover(resp, normalize.EvaluationSchema)
	if err != nil {
		return nil, fmt.Errorf("parse qa response: %w", err)
	}

	ev, err := rubric.New(raw)
	if err != nil {
		return nil, err
	}
	log.WithField("total_score", ev.TotalScore).Info("qa evaluation complete")
	return ev, nil
}

// BuildPrompt builds the strict rubric prompt. Score values listed here must
// match the legal sets in the rubric package exactly.
func BuildPrompt(transcript string) string {
	prompt := `You are a STRICT QA evaluator for customer support calls. Be critical and look for real issues.
Note: Deducting points without a reason is not encouraged.

### Scoring Guidelines (EXACT values only):

**GREETING (max 6 points):**
- greet_protocol: Excellent-4 (perfect greeting + company name), Good-3, Average-1, Miss-0
- offer_help: Yes-2 (explicitly offered), No-0, NA-2 (not needed)

**INFORMATION (max 15 points) - USE EXACT SCORES ONLY:**
- confirm_info: Complete-3, Partial-1, Missed-0 (ONLY these values)
- confirm_location: Yes-4, No-0 (ONLY 4 or 0)
- confirm_modality: Complete-4, Partial-2, Missed-0 (ONLY 4, 2, or 0)
- complete_details: Yes-2, No-0 (ONLY 2 or 0)
- info_within_1min: Yes-2, No-0 (ONLY 2 or 0)

**HOLD PROCEDURE (max 12 points) - BE CRITICAL:**
- proper_hold_script: Yes-4, No-0, NA-4 (no hold needed AND none occurred)
- extend_hold_disconnect: Yes-0 (disconnected during hold - BAD), No-4, NA-4
- reconnect_after_60s: Yes-4, No-0 (failed to reconnect), NA-4

**QUALITY CHECK (max 18 points) - LOOK FOR REAL ISSUES:**
- no_interrupt: Yes-0 (agent interrupted - BAD), No-2
- attentive: Yes-3, No-0, Average-1
- no_jargon: Yes-0 (used confusing jargon - BAD), No-2
- no_repetition: Yes-0 (unnecessary repetition - BAD), Average-1, No-2
- polite_courteous: Excellent-4, Good-3, Average-1
- tone_speed: Excellent-5, Good-3, Average-1

**UNSURE SITUATION (max 5 points):**
- assure_callback: Yes-5, No-0, Partial-3

**CLOSING SCRIPT (max 10 points):**
- ask_further_help: Yes-3, No-0
- follow_closing: Yes-3, No-0
- accurate_info: Yes-4, No-0

**SOUND QUALITY (max 4 points):**
- clear_confident: Excellent-4, Good-3, Average-1

**RECORD HANDLING (max 30 points) - EVALUATE BASED ON TRANSCRIPT:**
- accurate_record: 0-10 points (how well agent captured details)
- proper_disposition: 0-10 points (call handled according to procedure)
- spell_check: 0-10 points (accuracy of names/details)

---

### CRITICAL EVALUATION RULES:
1. READ THE TRANSCRIPT CAREFULLY - look for actual problems
2. Agent confusion, multiple transfers, incorrect information = DEDUCT POINTS
3. Missing standard procedures = DEDUCT POINTS
4. Perfect scores (100) should be RARE - most calls have issues
5. USE ONLY THE EXACT SCORE VALUES SPECIFIED ABOVE
6. If unsure between two scores, pick the LOWER one

---

### Transcript:
%s

---

### Required JSON Output Format - INCLUDE SPECIFIC EVIDENCE:
{
  "transcript_summary": "Brief summary of the call",
  "greeting": {
    "greet_protocol": {"score": 0, "reason": "EVIDENCE: quote the actual greeting used"},
    "offer_help": {"score": 0, "reason": "EVIDENCE: quote where help was offered"}
  },
  "information": {
    "confirm_info": {"score": 0, "reason": "EVIDENCE"},
    "confirm_location": {"score": 0, "reason": "EVIDENCE"},
    "confirm_modality": {"score": 0, "reason": "EVIDENCE"},
    "complete_details": {"score": 0, "reason": "EVIDENCE"},
    "info_within_1min": {"score": 0, "reason": "EVIDENCE"}
  },
  "hold_procedure": {
    "proper_hold_script": {"score": 0, "reason": "EVIDENCE"},
    "extend_hold_disconnect": {"score": 0, "reason": "EVIDENCE"},
    "reconnect_after_60s": {"score": 0, "reason": "EVIDENCE"}
  },
  "quality_check": {
    "no_interrupt": {"score": 0, "reason": "EVIDENCE"},
    "attentive": {"score": 0, "reason": "EVIDENCE"},
    "no_jargon": {"score": 0, "reason": "EVIDENCE"},
    "no_repetition": {"score": 0, "reason": "EVIDENCE"},
    "polite_courteous": {"score": 1, "reason": "EVIDENCE"},
    "tone_speed": {"score": 1, "reason": "EVIDENCE"}
  },
  "unsure_situation": {
    "assure_callback": {"score": 0, "reason": "EVIDENCE"}
  },
  "closing_script": {
    "ask_further_help": {"score": 0, "reason": "EVIDENCE"},
    "follow_closing": {"score": 0, "reason": "EVIDENCE"},
    "accurate_info": {"score": 0, "reason": "EVIDENCE"}
  },
  "sound_quality": {
    "clear_confident": {"score": 1, "reason": "EVIDENCE"}
  },
  "record_handling": {
    "accurate_record": {"score": 0, "reason": "EVIDENCE"},
    "proper_disposition": {"score": 0, "reason": "EVIDENCE"},
    "spell_check": {"score": 0, "reason": "EVIDENCE"}
  },
  "total_score": 0
}

Return ONLY the JSON, no other text.
`
	return fmt.Sprintf(prompt, transcript)
}
