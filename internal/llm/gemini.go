package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"call-qa-go/internal/logger"
)

// Gemini talks to the Gemini REST API. Audio transcription follows the
// upload -> poll until ACTIVE -> generate flow.
type Gemini struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     *logrus.Entry
}

func NewGemini(baseURL, apiKey, model string) *Gemini {
	return &Gemini{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     logger.Component("gemini"),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type genConfig struct {
	Temperature float64 `json:"temperature"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type uploadResponse struct {
	File fileInfo `json:"file"`
}

type fileInfo struct {
	Name  string    `json:"name"`
	URI   string    `json:"uri"`
	State string    `json:"state"` // PROCESSING, ACTIVE, FAILED
	Error *apiError `json:"error,omitempty"`
}

func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []part{{Text: prompt}})
}

func (g *Gemini) Transcribe(ctx context.Context, audioPath, prompt string) (string, error) {
	info, err := g.upload(ctx, audioPath)
	if err != nil {
		return "", err
	}
	info, err = g.waitActive(ctx, info)
	if err != nil {
		return "", err
	}
	g.log.WithField("file_uri", info.URI).Info("audio file active, generating transcript")
	return g.generate(ctx, []part{
		{Text: prompt},
		{FileData: &fileData{MimeType: mimeType(audioPath), FileURI: info.URI}},
	})
}

func (g *Gemini) generate(ctx context.Context, parts []part) (string, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	body, _ := json.Marshal(generateRequest{
		Contents: []content{{Parts: parts}},
		Config:   genConfig{Temperature: 0},
	})

	var resp generateResponse
	if err := g.doJSON(ctx, "generate", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.apiKey)
		return req, nil
	}, &resp); err != nil {
		return "", err
	}

	if resp.Error != nil {
		return "", &UpstreamError{Op: "generate", Err: fmt.Errorf("api error %d: %s", resp.Error.Code, resp.Error.Message)}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &UpstreamError{Op: "generate", Err: fmt.Errorf("empty candidate list in response")}
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (g *Gemini) upload(ctx context.Context, audioPath string) (fileInfo, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return fileInfo{}, &UpstreamError{Op: "upload", Err: err}
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	meta, _ := json.Marshal(map[string]any{
		"file": map[string]string{"display_name": filepath.Base(audioPath)},
	})
	mw, _ := w.CreateFormField("metadata")
	mw.Write(meta)
	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return fileInfo{}, &UpstreamError{Op: "upload", Err: err}
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fileInfo{}, &UpstreamError{Op: "upload", Err: err}
	}
	_ = w.Close()

	endpoint := fmt.Sprintf("%s/upload/v1beta/files?uploadType=multipart", g.baseURL)
	payload := buf.Bytes()

	var resp uploadResponse
	if err := g.doJSON(ctx, "upload", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("x-goog-api-key", g.apiKey)
		return req, nil
	}, &resp); err != nil {
		return fileInfo{}, err
	}
	if resp.File.Name == "" {
		return fileInfo{}, &UpstreamError{Op: "upload", Err: fmt.Errorf("no file name in upload response")}
	}
	return resp.File, nil
}

func (g *Gemini) waitActive(ctx context.Context, info fileInfo) (fileInfo, error) {
	endpoint := fmt.Sprintf("%s/v1beta/%s", g.baseURL, info.Name)
	for i := 0; i < 40; i++ {
		switch info.State {
		case "ACTIVE":
			return info, nil
		case "FAILED":
			msg := "file processing failed"
			if info.Error != nil {
				msg = info.Error.Message
			}
			return fileInfo{}, &UpstreamError{Op: "upload", Err: fmt.Errorf("%s", msg)}
		}

		select {
		case <-ctx.Done():
			return fileInfo{}, &UpstreamError{Op: "upload", Err: ctx.Err()}
		case <-time.After(1500 * time.Millisecond):
		}

		var next fileInfo
		if err := g.doJSON(ctx, "poll", func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("x-goog-api-key", g.apiKey)
			return req, nil
		}, &next); err != nil {
			g.log.WithField("error", err.Error()).Warn("file state poll failed")
			continue
		}
		info = next
	}
	return fileInfo{}, &UpstreamError{Op: "upload", Err: fmt.Errorf("timeout waiting for file to become active")}
}

// doJSON performs one JSON request with the inner retry policy. 4xx statuses
// are permanent; 5xx and transport errors are retried.
func (g *Gemini) doJSON(ctx context.Context, op string, build func() (*http.Request, error), target any) error {
	var lastErr error
	attempt := func() error {
		req, err := build()
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		resp, err := g.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
			return backoff.Permanent(lastErr)
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return lastErr
		}
		return nil
	}
	if err := backoff.Retry(attempt, retryPolicy(ctx)); err != nil {
		return &UpstreamError{Op: op, Err: lastErr}
	}
	return nil
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
