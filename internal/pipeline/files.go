package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"call-qa-go/internal/normalize"
)

// IsAudioFile reports whether the filename has a supported audio extension.
func IsAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav", ".mp3", ".m4a", ".flac":
		return true
	}
	return false
}

// IsTranscriptFile reports whether the filename is a pre-transcribed input.
func IsTranscriptFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".json":
		return true
	}
	return false
}

// transcriptFields are checked in order when digging a transcript out of a
// JSON document. English variants first.
var transcriptFields = []string{
	"englishTranscript", "english_transcript", "transcript", "text",
	"content", "conversation", "dialogue", "call_transcript", "transcript_text",
}

// ExtractTranscriptText pulls the transcript text out of an uploaded file's
// content. JSON files are searched for the usual transcript fields; plain
// text is returned as-is.
func ExtractTranscriptText(content, filename string) (string, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".json" {
		return strings.TrimSpace(content), nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return "", fmt.Errorf("invalid JSON transcript file: %w", err)
	}
	return textFromJSON(data), nil
}

// TranscriptFromModelOutput recovers the transcript text from a raw
// transcription response, which is nominally JSON but may be wrapped in
// prose. Unrecoverable output falls back to the raw text itself.
func TranscriptFromModelOutput(raw string) string {
	data, err := normalize.Recover(raw, nil)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return textFromJSON(data)
}

func textFromJSON(data map[string]any) string {
	for _, field := range transcriptFields {
		v, ok := data[field]
		if !ok {
			continue
		}
		if text := joinText(v); text != "" {
			return text
		}
	}

	// no known field: take any substantial string or list value
	for _, v := range data {
		if s, ok := v.(string); ok && len(s) > 50 {
			return strings.TrimSpace(s)
		}
		if list, ok := v.([]any); ok && len(list) > 0 {
			return joinText(list)
		}
	}

	// last resort: the whole document
	dump, _ := json.MarshalIndent(data, "", "  ")
	return string(dump)
}

func joinText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}
	return ""
}

// TranscribePrompt instructs the model to return a single JSON document with
// the agent/caller turns separated, which TranscriptFromModelOutput then
// unpacks.
const TranscribePrompt = `You are transcribing this audio file. You must be accurate and specific.
Analyze the provided audio file. Your response must be a single, complete JSON object and nothing else.

Transcribe the call in English. The transcript must label agent and caller turns, separated by newlines.

Use the following JSON structure:
{
  "metadata": {
    "detected_language": "English"
  },
  "conversation_summary": {
    "topic": "",
    "caller_intent": "",
    "outcome": "",
    "sentiment": ""
  },
  "participants": [
    {"speaker_id": "SPK_0", "role": "Caller", "name": ""},
    {"speaker_id": "SPK_1", "role": "Agent", "name": ""}
  ],
  "transcript": "AGENT: ...\nCALLER: ...\nAGENT: ..."
}
`
