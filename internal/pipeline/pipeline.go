package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"call-qa-go/internal/evaluator"
	"call-qa-go/internal/extractor"
	"call-qa-go/internal/llm"
	"call-qa-go/internal/logger"
	"call-qa-go/internal/rubric"
	"call-qa-go/internal/storage"
	"call-qa-go/internal/types"
)

// Result is the outcome of one file's run through the pipeline.
type Result struct {
	Filename        string                `json:"filename"`
	TranscriptID    int64                 `json:"transcript_id,omitempty"`
	QAEvaluationID  int64                 `json:"qa_evaluation_id,omitempty"`
	Transcript      string                `json:"transcript,omitempty"`
	ExtractedFields types.ExtractedFields `json:"extracted_fields"`
	QAEvaluation    *rubric.Evaluation    `json:"qa_evaluation,omitempty"`
	TotalScore      int                   `json:"total_score"`
	DurationMs      int64                 `json:"duration_ms"`
	Error           string                `json:"error,omitempty"`
}

// Pipeline runs the per-file flow: transcribe, extract fields, persist the
// transcript, score against the rubric, persist the evaluation. Stages are
// strictly sequential within one file.
type Pipeline struct {
	llm   llm.Client
	store *storage.Store
	log   *logrus.Entry
}

func New(client llm.Client, store *storage.Store) *Pipeline {
	return &Pipeline{llm: client, store: store, log: logger.Component("pipeline")}
}

// ProcessFile processes one uploaded file by path. On failure the returned
// Result carries the error message alongside the error itself, so batch
// reporting can keep the partial record.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	filename := filepath.Base(path)
	res := Result{Filename: filename, ExtractedFields: types.EmptyFields("")}
	log := p.log.WithField("filename", filename)

	fail := func(stage string, err error) (Result, error) {
		wrapped := fmt.Errorf("%s error: %w", stage, err)
		res.Error = wrapped.Error()
		res.DurationMs = time.Since(start).Milliseconds()
		log.WithField("error", err.Error()).Warn(stage + " failed")
		return res, wrapped
	}

	transcript, err := p.transcript(ctx, path, filename)
	if err != nil {
		return fail("transcription", err)
	}
	res.Transcript = transcript

	fields, err := extractor.Extract(ctx, p.llm, transcript)
	if err != nil {
		return fail("field extraction", err)
	}
	res.ExtractedFields = fields

	transcriptID, err := p.store.SaveTranscript(ctx, filename, transcript, fields)
	if err != nil {
		return fail("persistence", err)
	}
	res.TranscriptID = transcriptID

	ev, err := evaluator.Evaluate(ctx, p.llm, transcript)
	if err != nil {
		return fail("qa evaluation", err)
	}
	res.QAEvaluation = ev
	res.TotalScore = ev.TotalScore

	qaID, err := p.store.SaveQAEvaluation(ctx, transcriptID, ev)
	if err != nil {
		return fail("persistence", err)
	}
	res.QAEvaluationID = qaID

	res.DurationMs = time.Since(start).Milliseconds()
	log.WithFields(logrus.Fields{
		"transcript_id": transcriptID,
		"qa_id":         qaID,
		"total_score":   ev.TotalScore,
		"duration_ms":   res.DurationMs,
	}).Info("file processed")
	return res, nil
}

func (p *Pipeline) transcript(ctx context.Context, path, filename string) (string, error) {
	switch {
	case IsAudioFile(filename):
		raw, err := p.llm.Transcribe(ctx, path, TranscribePrompt)
		if err != nil {
			return "", err
		}
		return TranscriptFromModelOutput(raw), nil
	case IsTranscriptFile(filename):
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return ExtractTranscriptText(string(content), filename)
	default:
		return "", fmt.Errorf("unsupported file type: %s", filename)
	}
}
