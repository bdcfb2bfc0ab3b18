package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"call-qa-go/internal/rubric"
	"call-qa-go/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleFields() types.ExtractedFields {
	f := types.EmptyFields("")
	f.AgentNames = []string{"Priya"}
	f.PatientNames = []string{"Mr. Rao"}
	f.TestCenters = []string{"Indiranagar"}
	f.AppointmentDates = []string{"2024-01-15"}
	f.Sentiment = "positive"
	return f
}

func TestTranscriptRoundTrip(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveTranscript(ctx, "call.wav", "Good morning, thank you for calling.", sampleFields())
	req.NoError(err)
	req.Positive(id)

	rec, err := s.GetTranscript(ctx, id)
	req.NoError(err)
	req.NotNil(rec)
	req.Equal("call.wav", rec.Filename)
	req.Equal("Good morning, thank you for calling.", rec.OriginalText)
	req.Equal([]string{"Priya"}, rec.AgentNames)
	req.Equal([]string{"2024-01-15"}, rec.AppointmentDates)
	req.Equal("positive", rec.Sentiment)
	req.NotNil(rec.Departments)
	req.Empty(rec.Departments)
	req.NotEmpty(rec.CreatedAt)
}

func TestGetTranscript_Absent(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)

	rec, err := s.GetTranscript(context.Background(), 999)
	req.NoError(err)
	req.Nil(rec)
}

func TestListTranscripts(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	list, err := s.ListTranscripts(ctx)
	req.NoError(err)
	req.Empty(list)

	_, err = s.SaveTranscript(ctx, "a.wav", "first", sampleFields())
	req.NoError(err)
	_, err = s.SaveTranscript(ctx, "b.wav", "second", sampleFields())
	req.NoError(err)

	list, err = s.ListTranscripts(ctx)
	req.NoError(err)
	req.Len(list, 2)
}

func TestQAEvaluationRoundTrip(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	tid, err := s.SaveTranscript(ctx, "call.wav", "hello", sampleFields())
	req.NoError(err)

	ev := rubric.Fallback("no structured output")
	qaID, err := s.SaveQAEvaluation(ctx, tid, ev)
	req.NoError(err)
	req.Positive(qaID)

	rec, err := s.GetQAEvaluationByTranscript(ctx, tid)
	req.NoError(err)
	req.NotNil(rec)
	req.Equal(qaID, rec.ID)
	req.Equal(tid, rec.TranscriptID)
	req.Equal(ev.TotalScore, rec.TotalScore)
	req.Equal(ev.HoldProcedure, rec.HoldProcedure)
	req.Equal(ev.QualityCheck, rec.QualityCheck)
	req.Contains(rec.TranscriptSummary, "no structured output")

	byID, err := s.GetQAEvaluationByID(ctx, qaID)
	req.NoError(err)
	req.NotNil(byID)
	req.Equal(rec.TotalScore, byID.TotalScore)
}

func TestGetQAEvaluation_Absent(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)

	rec, err := s.GetQAEvaluationByTranscript(context.Background(), 42)
	req.NoError(err)
	req.Nil(rec)
}

// A row whose stored total disagrees with its section scores is never served.
func TestGetQAEvaluation_CorruptTotalRejected(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	tid, err := s.SaveTranscript(ctx, "call.wav", "hello", sampleFields())
	req.NoError(err)
	qaID, err := s.SaveQAEvaluation(ctx, tid, rubric.Fallback("x"))
	req.NoError(err)

	_, err = s.db.ExecContext(ctx, `UPDATE qa_evaluations SET total_score = 99 WHERE id = ?`, qaID)
	req.NoError(err)

	_, err = s.GetQAEvaluationByID(ctx, qaID)
	req.Error(err)
	req.Contains(err.Error(), "does not match")
}

func TestListQAEvaluationsJoined(t *testing.T) {
	req := require.New(t)
	s := openTestStore(t)
	ctx := context.Background()

	tid, err := s.SaveTranscript(ctx, "call.wav", "hello", sampleFields())
	req.NoError(err)
	_, err = s.SaveQAEvaluation(ctx, tid, rubric.Fallback("x"))
	req.NoError(err)

	list, err := s.ListQAEvaluationsJoined(ctx)
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(tid, list[0].TranscriptID)
	req.Equal("call.wav", list[0].Filename)
	req.Equal([]string{"Priya"}, list[0].AgentNames)
	req.Equal(15, list[0].TotalScore)

	// per-category sums recomputed from the stored section data
	req.Equal(12, list[0].CategoryScores["hold_procedure"])
	req.Equal(2, list[0].CategoryScores["quality_check"])
	req.Equal(0, list[0].CategoryScores["greeting"])
	sum := 0
	for _, v := range list[0].CategoryScores {
		sum += v
	}
	req.Equal(list[0].TotalScore, sum)
}
