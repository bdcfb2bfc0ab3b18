package extractor

import (
	"context"
	"fmt"

	"call-qa-go/internal/llm"
	"call-qa-go/internal/logger"
	"call-qa-go/internal/normalize"
	"call-qa-go/internal/types"
)

// BuildPrompt builds the entity-extraction prompt. Field names here are the
// stored record contract; keep them in sync with normalize.ExtractionSchema.
func BuildPrompt(transcript string) string {
	prompt := `Analyze this call transcript and extract the following information. ONLY extract information that is explicitly mentioned in the transcript:

1. agent_names: Names of agents/staff (often introduced at beginning)
2. patient_names: Patient names mentioned in the call
3. test_centers: Medical centers, hospitals, diagnostic centers mentioned
4. tests_mentioned: Specific tests, procedures, or reports mentioned (e.g. MRI, X-ray, blood test)
5. doctors_mentioned: Doctor names if any are mentioned
6. contact_info: Phone numbers, email addresses if mentioned
7. appointment_dates: Dates or times mentioned for appointments/tests
8. departments: Departments or branches mentioned
9. sentiment: Sentiment observed in the call transcript (positive/neutral/negative)

Return ONLY the JSON format below with actual extracted data. Do not make up or assume information:
{
    "agent_names": [],
    "patient_names": [],
    "test_centers": [],
    "tests_mentioned": [],
    "doctors_mentioned": [],
    "contact_info": [],
    "appointment_dates": [],
    "departments": [],
    "sentiment": ""
}

Transcript:
%s
`
	return fmt.Sprintf(prompt, transcript)
}

// Extract runs entity extraction over one transcript. An upstream failure is
// returned as an error; unusable model output degrades to an empty result
// carrying the parse error instead, so the rest of the pipeline can proceed.
func Extract(ctx context.Context, client llm.Client, transcript string) (types.ExtractedFields, error) {
	log := logger.Component("extractor")

	resp, err := client.GenerateText(ctx, BuildPrompt(transcript))
	if err != nil {
		return types.EmptyFields(err.Error()), err
	}

	fields, err := normalize.Fields(resp)
	if err != nil {
		log.WithField("error", err.Error()).Warn("field extraction output unusable, returning empty result")
		return fields, nil
	}
	return fields, nil
}
