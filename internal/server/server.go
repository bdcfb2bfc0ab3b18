package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"call-qa-go/internal/batch"
	"call-qa-go/internal/logger"
	"call-qa-go/internal/pipeline"
	"call-qa-go/internal/report"
	"call-qa-go/internal/stats"
	"call-qa-go/internal/storage"
)

// FileProcessor is the per-file pipeline as the server sees it.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (pipeline.Result, error)
}

type Server struct {
	store       *storage.Store
	proc        FileProcessor
	uploadDir   string
	concurrency int
	log         *logger.Logger
}

func New(store *storage.Store, proc FileProcessor, uploadDir string, concurrency int) *Server {
	return &Server{
		store:       store,
		proc:        proc,
		uploadDir:   uploadDir,
		concurrency: concurrency,
		log:         logger.New(),
	}
}

// Routes builds the full handler tree, wrapped in permissive CORS for the
// dashboard frontend.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /upload-and-process", s.handleUploadAndProcess)
	mux.HandleFunc("POST /process-batch", s.handleProcessBatch)
	mux.HandleFunc("GET /transcripts", s.handleListTranscripts)
	mux.HandleFunc("GET /transcripts/{id}", s.handleTranscriptDetail)
	mux.HandleFunc("GET /call-details/{id}", s.handleCallDetails)
	mux.HandleFunc("GET /qa-evaluation/{id}", s.handleQAEvaluation)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("/", s.handleRoot)

	return cors(mux)
}

// cors allows any origin; the API serves a separately hosted dashboard.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD, PATCH")
		h.Set("Access-Control-Allow-Headers", "Accept, Accept-Language, Content-Language, Content-Type, Authorization, X-Requested-With, Origin")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, fmt.Sprintf("resource not found: %s", r.URL.Path))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Call QA Insights API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleUploadAndProcess(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "upload-and-process")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	if !pipeline.IsAudioFile(header.Filename) && !pipeline.IsTranscriptFile(header.Filename) {
		writeError(w, http.StatusBadRequest, "please upload a valid audio or transcript file")
		return
	}

	path, err := s.saveUpload(file, header.Filename)
	if err != nil {
		log.WithError(err).Error("failed to save upload")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, err := s.proc.ProcessFile(r.Context(), path)
	if err != nil {
		log.WithError(err).Warn("pipeline failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"transcript_id":    res.TranscriptID,
		"qa_evaluation_id": res.QAEvaluationID,
		"filename":         res.Filename,
		"extracted_fields": res.ExtractedFields,
		"qa_evaluation":    res.QAEvaluation,
		"total_score":      res.TotalScore,
	})
}

func (s *Server) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "process-batch")

	if err := r.ParseMultipartForm(256 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	inputs := make([]batch.Input, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read upload %s", h.Filename))
			return
		}
		path, err := s.saveUpload(f, h.Filename)
		f.Close()
		if err != nil {
			log.WithError(err).Error("failed to save upload")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		inputs = append(inputs, batch.Input{Filename: h.Filename, Path: path})
	}

	report, err := batch.Run(r.Context(), inputs, s.concurrency, func(ctx context.Context, in batch.Input) (pipeline.Result, error) {
		return s.proc.ProcessFile(ctx, in.Path)
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  report,
	})
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	transcripts, err := s.store.ListTranscripts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transcripts": transcripts})
}

func (s *Server) handleTranscriptDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	transcript, err := s.store.GetTranscript(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if transcript == nil {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transcript": transcript})
}

func (s *Server) handleCallDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	transcript, err := s.store.GetTranscript(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if transcript == nil {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	evaluation, err := s.store.GetQAEvaluationByTranscript(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"call_data": map[string]any{
			"transcript":    transcript,
			"qa_evaluation": evaluation,
		},
	})
}

func (s *Server) handleQAEvaluation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	evaluation, err := s.store.GetQAEvaluationByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if evaluation == nil {
		writeError(w, http.StatusNotFound, "qa evaluation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "qa_evaluation": evaluation})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListQAEvaluationsJoined(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"dashboard_data": stats.Build(rows),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "export")

	rows, err := s.store.ListQAEvaluationsJoined(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	wb, err := report.Workbook(stats.Build(rows))
	if err != nil {
		log.WithError(err).Error("failed to build report")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="call-qa-report.xlsx"`)
	if err := wb.Write(w); err != nil {
		log.WithError(err).Error("failed to write report")
	}
}

func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, filepath.Base(filename))
	s.log.WithFile(filename).Debug("saving upload")
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
