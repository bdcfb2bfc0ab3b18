package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAudioFile(t *testing.T) {
	req := require.New(t)
	req.True(IsAudioFile("call.wav"))
	req.True(IsAudioFile("CALL.MP3"))
	req.True(IsAudioFile("a.m4a"))
	req.True(IsAudioFile("a.flac"))
	req.False(IsAudioFile("call.txt"))
	req.False(IsAudioFile("call"))
}

func TestIsTranscriptFile(t *testing.T) {
	req := require.New(t)
	req.True(IsTranscriptFile("call.txt"))
	req.True(IsTranscriptFile("call.JSON"))
	req.False(IsTranscriptFile("call.wav"))
}

func TestExtractTranscriptText_PlainText(t *testing.T) {
	req := require.New(t)

	out, err := ExtractTranscriptText("  AGENT: hello\nCALLER: hi  \n", "call.txt")
	req.NoError(err)
	req.Equal("AGENT: hello\nCALLER: hi", out)
}

func TestExtractTranscriptText_JSONFields(t *testing.T) {
	req := require.New(t)

	out, err := ExtractTranscriptText(`{"transcript": "AGENT: hello"}`, "call.json")
	req.NoError(err)
	req.Equal("AGENT: hello", out)

	// english variant wins over the generic field
	out, err = ExtractTranscriptText(`{"englishTranscript": "AGENT: good morning", "transcript": "other"}`, "call.json")
	req.NoError(err)
	req.Equal("AGENT: good morning", out)
}

func TestExtractTranscriptText_JSONListValue(t *testing.T) {
	req := require.New(t)

	out, err := ExtractTranscriptText(`{"conversation": ["AGENT: hello", "CALLER: hi"]}`, "call.json")
	req.NoError(err)
	req.Equal("AGENT: hello\nCALLER: hi", out)
}

func TestExtractTranscriptText_InvalidJSON(t *testing.T) {
	_, err := ExtractTranscriptText("not json", "call.json")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid JSON transcript file")
}

func TestTranscriptFromModelOutput(t *testing.T) {
	req := require.New(t)

	raw := "Here you go:\n{\"metadata\": {}, \"transcript\": \"AGENT: hello\\nCALLER: hi\"}"
	req.Equal("AGENT: hello\nCALLER: hi", TranscriptFromModelOutput(raw))

	// unusable output falls back to the raw text
	req.Equal("plain transcription text", TranscriptFromModelOutput("  plain transcription text\n"))
}
