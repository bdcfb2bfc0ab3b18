package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"call-qa-go/internal/logger"
	"call-qa-go/internal/rubric"
	"call-qa-go/internal/types"
)

// StorageError marks a persistence failure. The data layer is trusted within
// its own transaction, so these are never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store persists transcripts and QA evaluations in SQLite. List and section
// values are stored as JSON text columns; the column names are a migration
// contract and must stay as-is.
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	original_text TEXT NOT NULL,
	agent_names TEXT,
	patient_names TEXT,
	test_centers TEXT,
	tests_mentioned TEXT,
	doctors_mentioned TEXT,
	contact_info TEXT,
	appointment_dates TEXT,
	departments TEXT,
	sentiment TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS qa_evaluations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	transcript_id INTEGER NOT NULL,
	transcript_summary TEXT,
	greeting_data TEXT NOT NULL,
	information_data TEXT NOT NULL,
	hold_procedure_data TEXT NOT NULL,
	quality_check_data TEXT NOT NULL,
	unsure_situation_data TEXT NOT NULL,
	closing_script_data TEXT NOT NULL,
	sound_quality_data TEXT NOT NULL,
	record_handling_data TEXT NOT NULL,
	total_score INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (transcript_id) REFERENCES transcripts (id)
);`

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "init", Err: err}
	}
	return &Store{db: db, log: logger.Component("storage")}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// TranscriptRecord is one stored transcript with its extracted entities.
type TranscriptRecord struct {
	ID           int64  `json:"id"`
	Filename     string `json:"filename"`
	OriginalText string `json:"original_text"`
	types.ExtractedFields
	CreatedAt string `json:"created_at"`
}

// TranscriptSummary is the listing row shape.
type TranscriptSummary struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	CreatedAt string `json:"created_at"`
}

// EvaluationRecord is one stored QA evaluation.
type EvaluationRecord struct {
	ID           int64 `json:"id"`
	TranscriptID int64 `json:"transcript_id"`
	rubric.Evaluation
	CreatedAt string `json:"created_at"`
}

// EvaluationSummary is the joined listing row shape used by the dashboard.
// CategoryScores holds the per-category sums recomputed from the stored
// section data.
type EvaluationSummary struct {
	QAID           int64          `json:"qa_id"`
	TranscriptID   int64          `json:"transcript_id"`
	Filename       string         `json:"filename"`
	TotalScore     int            `json:"total_score"`
	CreatedAt      string         `json:"created_at"`
	CategoryScores map[string]int `json:"category_scores"`
	AgentNames     []string       `json:"agent_names"`
	PatientNames   []string       `json:"patient_names"`
	TestCenters    []string       `json:"test_centers"`
}

func (s *Store) SaveTranscript(ctx context.Context, filename, originalText string, fields types.ExtractedFields) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts
		(filename, original_text, agent_names, patient_names, test_centers,
		 tests_mentioned, doctors_mentioned, contact_info, appointment_dates, departments, sentiment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		filename, originalText,
		listJSON(fields.AgentNames), listJSON(fields.PatientNames), listJSON(fields.TestCenters),
		listJSON(fields.TestsMentioned), listJSON(fields.DoctorsMentioned), listJSON(fields.ContactInfo),
		listJSON(fields.AppointmentDates), listJSON(fields.Departments), fields.Sentiment)
	if err != nil {
		return 0, &StorageError{Op: "save transcript", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &StorageError{Op: "save transcript", Err: err}
	}
	s.log.WithFields(logrus.Fields{"transcript_id": id, "filename": filename}).Info("transcript saved")
	return id, nil
}

func (s *Store) SaveQAEvaluation(ctx context.Context, transcriptID int64, ev *rubric.Evaluation) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO qa_evaluations
		(transcript_id, transcript_summary, greeting_data, information_data,
		 hold_procedure_data, quality_check_data, unsure_situation_data,
		 closing_script_data, sound_quality_data, record_handling_data, total_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transcriptID, ev.TranscriptSummary,
		sectionJSON(ev.Greeting), sectionJSON(ev.Information),
		sectionJSON(ev.HoldProcedure), sectionJSON(ev.QualityCheck),
		sectionJSON(ev.UnsureSituation), sectionJSON(ev.ClosingScript),
		sectionJSON(ev.SoundQuality), sectionJSON(ev.RecordHandling),
		ev.TotalScore)
	if err != nil {
		return 0, &StorageError{Op: "save qa evaluation", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &StorageError{Op: "save qa evaluation", Err: err}
	}
	s.log.WithFields(logrus.Fields{"qa_id": id, "transcript_id": transcriptID, "total_score": ev.TotalScore}).Info("qa evaluation saved")
	return id, nil
}

// GetTranscript returns the stored transcript, or nil when absent.
func (s *Store) GetTranscript(ctx context.Context, id int64) (*TranscriptRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, original_text, agent_names, patient_names, test_centers,
		       tests_mentioned, doctors_mentioned, contact_info, appointment_dates,
		       departments, sentiment, created_at
		FROM transcripts WHERE id = ?`, id)

	var rec TranscriptRecord
	var agents, patients, centers, tests, doctors, contacts, dates, departments string
	err := row.Scan(&rec.ID, &rec.Filename, &rec.OriginalText,
		&agents, &patients, &centers, &tests, &doctors, &contacts, &dates, &departments,
		&rec.Sentiment, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "get transcript", Err: err}
	}
	rec.AgentNames = parseList(agents)
	rec.PatientNames = parseList(patients)
	rec.TestCenters = parseList(centers)
	rec.TestsMentioned = parseList(tests)
	rec.DoctorsMentioned = parseList(doctors)
	rec.ContactInfo = parseList(contacts)
	rec.AppointmentDates = parseList(dates)
	rec.Departments = parseList(departments)
	return &rec, nil
}

func (s *Store) ListTranscripts(ctx context.Context) ([]TranscriptSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, created_at FROM transcripts ORDER BY created_at DESC`)
	if err != nil {
		return nil, &StorageError{Op: "list transcripts", Err: err}
	}
	defer rows.Close()

	out := []TranscriptSummary{}
	for rows.Next() {
		var t TranscriptSummary
		if err := rows.Scan(&t.ID, &t.Filename, &t.CreatedAt); err != nil {
			return nil, &StorageError{Op: "list transcripts", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list transcripts", Err: err}
	}
	return out, nil
}

// GetQAEvaluationByTranscript returns the evaluation for a transcript, or nil
// when absent. The total is cross-checked against the recomputed sum so a
// corrupted row is never served.
func (s *Store) GetQAEvaluationByTranscript(ctx context.Context, transcriptID int64) (*EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx, evaluationSelect+` WHERE transcript_id = ?`, transcriptID)
	return s.scanEvaluation(row)
}

// GetQAEvaluationByID returns the evaluation by its own id, or nil when
// absent.
func (s *Store) GetQAEvaluationByID(ctx context.Context, id int64) (*EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx, evaluationSelect+` WHERE id = ?`, id)
	return s.scanEvaluation(row)
}

const evaluationSelect = `
	SELECT id, transcript_id, transcript_summary, greeting_data,
	       information_data, hold_procedure_data, quality_check_data,
	       unsure_situation_data, closing_script_data, sound_quality_data,
	       record_handling_data, total_score, created_at
	FROM qa_evaluations`

func (s *Store) scanEvaluation(row *sql.Row) (*EvaluationRecord, error) {
	var rec EvaluationRecord
	var greeting, information, hold, quality, unsure, closing, sound, record string
	err := row.Scan(&rec.ID, &rec.TranscriptID, &rec.TranscriptSummary,
		&greeting, &information, &hold, &quality, &unsure, &closing, &sound, &record,
		&rec.TotalScore, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "get qa evaluation", Err: err}
	}
	if err := decodeSections(&rec.Evaluation, greeting, information, hold, quality, unsure, closing, sound, record); err != nil {
		return nil, &StorageError{Op: "get qa evaluation", Err: err}
	}
	if err := rubric.ValidateTotal(&rec.Evaluation); err != nil {
		return nil, &StorageError{Op: "get qa evaluation", Err: err}
	}
	return &rec, nil
}

func decodeSections(ev *rubric.Evaluation, greeting, information, hold, quality, unsure, closing, sound, record string) error {
	sections := []struct {
		data string
		dst  any
	}{
		{greeting, &ev.Greeting}, {information, &ev.Information},
		{hold, &ev.HoldProcedure}, {quality, &ev.QualityCheck},
		{unsure, &ev.UnsureSituation}, {closing, &ev.ClosingScript},
		{sound, &ev.SoundQuality}, {record, &ev.RecordHandling},
	}
	for _, sec := range sections {
		if err := json.Unmarshal([]byte(sec.data), sec.dst); err != nil {
			return fmt.Errorf("decode section: %w", err)
		}
	}
	return nil
}

func (s *Store) ListQAEvaluationsJoined(ctx context.Context) ([]EvaluationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT qa.id, qa.transcript_id, t.filename, qa.total_score, qa.created_at,
		       qa.greeting_data, qa.information_data, qa.hold_procedure_data,
		       qa.quality_check_data, qa.unsure_situation_data, qa.closing_script_data,
		       qa.sound_quality_data, qa.record_handling_data,
		       t.agent_names, t.patient_names, t.test_centers
		FROM qa_evaluations qa
		JOIN transcripts t ON qa.transcript_id = t.id
		ORDER BY qa.created_at DESC`)
	if err != nil {
		return nil, &StorageError{Op: "list qa evaluations", Err: err}
	}
	defer rows.Close()

	out := []EvaluationSummary{}
	for rows.Next() {
		var e EvaluationSummary
		var greeting, information, hold, quality, unsure, closing, sound, record string
		var agents, patients, centers string
		if err := rows.Scan(&e.QAID, &e.TranscriptID, &e.Filename, &e.TotalScore, &e.CreatedAt,
			&greeting, &information, &hold, &quality, &unsure, &closing, &sound, &record,
			&agents, &patients, &centers); err != nil {
			return nil, &StorageError{Op: "list qa evaluations", Err: err}
		}
		var ev rubric.Evaluation
		if err := decodeSections(&ev, greeting, information, hold, quality, unsure, closing, sound, record); err != nil {
			return nil, &StorageError{Op: "list qa evaluations", Err: err}
		}
		e.CategoryScores = rubric.CategoryTotals(&ev)
		e.AgentNames = parseList(agents)
		e.PatientNames = parseList(patients)
		e.TestCenters = parseList(centers)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list qa evaluations", Err: err}
	}
	return out, nil
}

func listJSON(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func sectionJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func parseList(s string) []string {
	if s == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
