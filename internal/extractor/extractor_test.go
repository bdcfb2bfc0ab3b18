package extractor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"call-qa-go/internal/llm"
)

type stubClient struct {
	response string
	err      error
}

func (s stubClient) GenerateText(context.Context, string) (string, error) {
	return s.response, s.err
}

func (s stubClient) Transcribe(context.Context, string, string) (string, error) {
	return "", nil
}

func TestExtract_MockClient(t *testing.T) {
	req := require.New(t)

	fields, err := Extract(context.Background(), llm.Mock{}, "AGENT: Good morning...")
	req.NoError(err)
	req.Equal([]string{"Rahul"}, fields.AgentNames)
	req.Equal([]string{"Priya Sharma"}, fields.PatientNames)
	req.Equal("positive", fields.Sentiment)
}

func TestExtract_UpstreamErrorPropagates(t *testing.T) {
	req := require.New(t)

	upstream := &llm.UpstreamError{Op: "generate", Err: fmt.Errorf("quota exceeded")}
	fields, err := Extract(context.Background(), stubClient{err: upstream}, "transcript")
	req.ErrorIs(err, upstream)
	req.Empty(fields.AgentNames)
	req.Contains(fields.Error, "quota exceeded")
}

// Unusable model output is not an error at this layer; the call record still
// gets saved with empty entities.
func TestExtract_GarbageOutputDegrades(t *testing.T) {
	req := require.New(t)

	fields, err := Extract(context.Background(), stubClient{response: "no structure at all"}, "transcript")
	req.NoError(err)
	req.NotNil(fields.AgentNames)
	req.Empty(fields.AgentNames)
	req.NotEmpty(fields.Error)
}

func TestBuildPrompt_EmbedsTranscript(t *testing.T) {
	req := require.New(t)

	p := BuildPrompt("CALLER: my name is Asha")
	req.Contains(p, "CALLER: my name is Asha")
	req.Contains(p, "agent_names")
	req.Contains(p, "sentiment")
}
