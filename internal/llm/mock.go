package llm

import (
	"context"
	"strings"
)

// Mock is the offline client used for demos and local runs without an API
// key. Responses are deterministic; the evaluation payload sums to 90.
type Mock struct{}

func (Mock) Transcribe(_ context.Context, audioPath, _ string) (string, error) {
	_ = audioPath
	return `{"transcript": "AGENT: Good morning, thank you for calling City Diagnostics, this is Rahul. How may I help you?\nCALLER: Hi, this is Priya Sharma, I wanted to confirm my MRI appointment.\nAGENT: Of course. I can see the appointment at our Andheri branch on Friday at 10 AM with Dr. Mehta.\nCALLER: Perfect, thank you.\nAGENT: Is there anything else I can help you with today? Thank you for calling, have a great day."}`, nil
}

func (Mock) GenerateText(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "agent_names") {
		return mockExtraction, nil
	}
	return mockEvaluation, nil
}

const mockExtraction = `{
  "agent_names": ["Rahul"],
  "patient_names": ["Priya Sharma"],
  "test_centers": ["City Diagnostics"],
  "tests_mentioned": ["MRI"],
  "doctors_mentioned": ["Dr. Mehta"],
  "contact_info": [],
  "appointment_dates": ["Friday 10 AM"],
  "departments": ["Andheri branch"],
  "sentiment": "positive"
}`

const mockEvaluation = `{
  "transcript_summary": "Caller confirmed an MRI appointment; agent handled the call smoothly.",
  "greeting": {
    "greet_protocol": {"score": 4, "reason": "Full greeting with company name"},
    "offer_help": {"score": 2, "reason": "Explicitly offered help"}
  },
  "information": {
    "confirm_info": {"score": 3, "reason": "Complete confirmation"},
    "confirm_location": {"score": 4, "reason": "Branch confirmed"},
    "confirm_modality": {"score": 4, "reason": "Test confirmed"},
    "complete_details": {"score": 2, "reason": "Details collected"},
    "info_within_1min": {"score": 2, "reason": "Information given promptly"}
  },
  "hold_procedure": {
    "proper_hold_script": {"score": 4, "reason": "NA - no hold occurred"},
    "extend_hold_disconnect": {"score": 4, "reason": "NA - no hold occurred"},
    "reconnect_after_60s": {"score": 4, "reason": "NA - no hold occurred"}
  },
  "quality_check": {
    "no_interrupt": {"score": 2, "reason": "No interruptions observed"},
    "attentive": {"score": 3, "reason": "Fully attentive"},
    "no_jargon": {"score": 2, "reason": "Clear language used"},
    "no_repetition": {"score": 2, "reason": "No unnecessary repetition"},
    "polite_courteous": {"score": 3, "reason": "Good courtesy"},
    "tone_speed": {"score": 3, "reason": "Good pace"}
  },
  "unsure_situation": {
    "assure_callback": {"score": 5, "reason": "No uncertainty; handled directly"}
  },
  "closing_script": {
    "ask_further_help": {"score": 3, "reason": "Asked if anything else was needed"},
    "follow_closing": {"score": 3, "reason": "Proper closing"},
    "accurate_info": {"score": 4, "reason": "All information accurate"}
  },
  "sound_quality": {
    "clear_confident": {"score": 3, "reason": "Mostly clear"}
  },
  "record_handling": {
    "accurate_record": {"score": 8, "reason": "Names and dates captured"},
    "proper_disposition": {"score": 9, "reason": "Handled per procedure"},
    "spell_check": {"score": 7, "reason": "Minor ambiguity in branch name"}
  },
  "total_score": 90
}`
