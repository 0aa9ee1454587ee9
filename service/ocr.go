package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jansaakshi/backend/config"
)

// OCR task states
const (
	OCRStatePending    = "pending"
	OCRStateRunning    = "running"
	OCRStateConverting = "converting"
	OCRStateDone       = "done"
	OCRStateFailed     = "failed"
)

const maxZipBytes = 200 << 20

// ErrOCRTimeout is returned when a task is still running after the last poll
var ErrOCRTimeout = errors.New("ocr task did not finish in time")

// OCRClient turns an uploaded document into text
type OCRClient interface {
	CreateTask(ctx context.Context, pdfURL, dataID string) (string, error)
	WaitForResult(ctx context.Context, taskID string) (*OCRTaskData, error)
	FetchMarkdown(ctx context.Context, zipURL string) (string, error)
}

type OCRService struct {
	config       *config.OCRConfig
	httpClient   *http.Client
	pollInterval time.Duration
}

var _ OCRClient = (*OCRService)(nil)

// OCRTaskRequest represents the request to create an extraction task
type OCRTaskRequest struct {
	URL          string `json:"url"`
	ModelVersion string `json:"model_version"`
	Callback     string `json:"callback,omitempty"`
	Seed         string `json:"seed,omitempty"`
	DataID       string `json:"data_id,omitempty"`
}

// OCRTaskResponse represents the response from task creation
type OCRTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// OCRTaskData is the state of one extraction task
type OCRTaskData struct {
	TaskID          string `json:"task_id"`
	DataID          string `json:"data_id"`
	State           string `json:"state"`
	FullZipURL      string `json:"full_zip_url,omitempty"`
	ErrorMsg        string `json:"err_msg,omitempty"`
	ExtractProgress struct {
		ExtractedPages int `json:"extracted_pages"`
		TotalPages     int `json:"total_pages"`
	} `json:"extract_progress,omitempty"`
}

// OCRTaskStatusResponse represents the task status query response
type OCRTaskStatusResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"msg"`
	TraceID string      `json:"trace_id"`
	Data    OCRTaskData `json:"data"`
}

// OCRCallbackPayload is posted by the OCR service when a task finishes.
// Content is the JSON encoded OCRTaskData.
type OCRCallbackPayload struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

func NewOCRService(cfg *config.OCRConfig) *OCRService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OCRService{
		config:       cfg,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: interval,
	}
}

func (s *OCRService) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// CreateTask starts extraction of the document at pdfURL and returns the task id
func (s *OCRService) CreateTask(ctx context.Context, pdfURL, dataID string) (string, error) {
	reqBody := OCRTaskRequest{
		URL:          pdfURL,
		ModelVersion: s.config.ModelVersion,
		DataID:       dataID,
	}
	if s.config.CallbackURL != "" {
		reqBody.Callback = s.config.CallbackURL
		reqBody.Seed = s.config.Seed
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL+"/extract/task", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result OCRTaskResponse
	if err := s.do(req, &result); err != nil {
		return "", err
	}
	if result.Code != 0 {
		return "", fmt.Errorf("OCR API error: %s", result.Message)
	}
	if result.Data.TaskID == "" {
		return "", fmt.Errorf("OCR API returned no task id")
	}
	return result.Data.TaskID, nil
}

// GetTaskStatus queries the status of a task
func (s *OCRService) GetTaskStatus(ctx context.Context, taskID string) (*OCRTaskData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/extract/task/%s", s.config.APIURL, taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result OCRTaskStatusResponse
	if err := s.do(req, &result); err != nil {
		return nil, err
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("OCR API error: %s", result.Message)
	}
	return &result.Data, nil
}

// WaitForResult polls the task until it is done or failed, up to
// max_poll_attempts times
func (s *OCRService) WaitForResult(ctx context.Context, taskID string) (*OCRTaskData, error) {
	attempts := s.config.MaxPollAttempts
	if attempts <= 0 {
		attempts = 60
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		data, err := s.GetTaskStatus(ctx, taskID)
		if err != nil {
			slog.Warn("ocr status poll failed", "task_id", taskID, "attempt", i+1, "error", err)
			continue
		}

		slog.Debug("ocr task progress", "task_id", taskID, "state", data.State,
			"pages", data.ExtractProgress.ExtractedPages, "total_pages", data.ExtractProgress.TotalPages)

		switch data.State {
		case OCRStateDone:
			if data.FullZipURL == "" {
				return nil, fmt.Errorf("ocr task %s finished without a result URL", taskID)
			}
			return data, nil
		case OCRStateFailed:
			return nil, fmt.Errorf("ocr task %s failed: %s", taskID, data.ErrorMsg)
		}
	}
	return nil, ErrOCRTimeout
}

// VerifyCallback checks checksum == sha256(uid + seed + content)
func (s *OCRService) VerifyCallback(checksum, content, uid string) bool {
	hash := sha256.Sum256([]byte(uid + s.config.Seed + content))
	return strings.EqualFold(checksum, hex.EncodeToString(hash[:]))
}

// ParseCallback decodes the task state carried by a callback
func ParseCallback(payload OCRCallbackPayload) (*OCRTaskData, error) {
	var data OCRTaskData
	if err := json.Unmarshal([]byte(payload.Content), &data); err != nil {
		return nil, fmt.Errorf("failed to parse callback content: %w", err)
	}
	if data.TaskID == "" {
		return nil, fmt.Errorf("callback content has no task id")
	}
	return &data, nil
}

// FetchMarkdown downloads the result ZIP and returns the document text. The
// markdown rendering is preferred; otherwise the text blocks of
// content_list.json are joined.
func (s *OCRService) FetchMarkdown(ctx context.Context, zipURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, zipURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download ZIP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download ZIP: status %d", resp.StatusCode)
	}

	zipData, err := io.ReadAll(io.LimitReader(resp.Body, maxZipBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read ZIP: %w", err)
	}
	slog.Debug("ocr result downloaded", "bytes", len(zipData))

	return ExtractText(zipData)
}

// ExtractText pulls the document text out of an OCR result archive
func ExtractText(zipData []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return "", fmt.Errorf("failed to open ZIP: %w", err)
	}

	files := append([]*zip.File(nil), zipReader.File...)
	// full.md first, then other markdown files by name
	sort.SliceStable(files, func(i, j int) bool {
		return strings.HasSuffix(files[i].Name, "full.md") && !strings.HasSuffix(files[j].Name, "full.md")
	})

	for _, f := range files {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".md") {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			slog.Warn("failed to read markdown from ZIP", "file", f.Name, "error", err)
			continue
		}
		if text := strings.TrimSpace(string(content)); text != "" {
			return text, nil
		}
	}

	for _, f := range files {
		if !strings.HasSuffix(f.Name, "content_list.json") {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			continue
		}
		var blocks []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(content, &blocks); err != nil {
			slog.Warn("failed to parse content list", "file", f.Name, "error", err)
			continue
		}
		var parts []string
		for _, b := range blocks {
			if t := strings.TrimSpace(b.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n"), nil
		}
	}

	return "", fmt.Errorf("no text found in OCR result")
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxZipBytes))
}
