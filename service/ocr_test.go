package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jansaakshi/backend/config"
)

func newTestOCR(apiURL string) *OCRService {
	svc := NewOCRService(&config.OCRConfig{
		APIURL:          apiURL,
		APIToken:        "test-token",
		ModelVersion:    "vlm",
		Seed:            "test-seed",
		MaxPollAttempts: 5,
	})
	svc.pollInterval = time.Millisecond
	return svc
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip entry: %v", err)
		}
		f.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestOCRServiceCreateTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/extract/task" {
			t.Errorf("Expected /extract/task, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Error("Expected Authorization header")
		}

		var req OCRTaskRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.DataID != "job-1" {
			t.Errorf("Expected data id job-1, got '%s'", req.DataID)
		}
		if req.Callback != "" {
			t.Errorf("Expected no callback, got '%s'", req.Callback)
		}

		response := OCRTaskResponse{Code: 0, Message: "success"}
		response.Data.TaskID = "task-123"
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	taskID, err := newTestOCR(server.URL).CreateTask(context.Background(), "http://minio/doc.pdf", "job-1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if taskID != "task-123" {
		t.Errorf("Expected task ID 'task-123', got '%s'", taskID)
	}
}

func TestOCRServiceCreateTaskWithCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OCRTaskRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Callback != "http://callback.test" {
			t.Errorf("Expected callback URL, got '%s'", req.Callback)
		}
		if req.Seed != "test-seed" {
			t.Errorf("Expected seed, got '%s'", req.Seed)
		}
		response := OCRTaskResponse{}
		response.Data.TaskID = "task-456"
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	svc := newTestOCR(server.URL)
	svc.config.CallbackURL = "http://callback.test"
	if _, err := svc.CreateTask(context.Background(), "http://minio/doc.pdf", "job-1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestOCRServiceCreateTaskErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"api error", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(OCRTaskResponse{Code: 1, Message: "quota exceeded"})
		}},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"missing task id", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(OCRTaskResponse{})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			if _, err := newTestOCR(server.URL).CreateTask(context.Background(), "u", "d"); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestOCRServiceCreateTaskNetworkError(t *testing.T) {
	svc := newTestOCR("http://127.0.0.1:1")
	if _, err := svc.CreateTask(context.Background(), "u", "d"); err == nil {
		t.Error("Expected error for network failure")
	}
}

func TestOCRServiceWaitForResult(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract/task/task-123" {
			t.Errorf("Expected /extract/task/task-123, got %s", r.URL.Path)
		}
		response := OCRTaskStatusResponse{}
		response.Data.TaskID = "task-123"
		if atomic.AddInt32(&polls, 1) < 3 {
			response.Data.State = OCRStateRunning
		} else {
			response.Data.State = OCRStateDone
			response.Data.FullZipURL = "http://example.com/result.zip"
		}
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	data, err := newTestOCR(server.URL).WaitForResult(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if data.FullZipURL != "http://example.com/result.zip" {
		t.Errorf("Expected zip URL, got '%s'", data.FullZipURL)
	}
	if atomic.LoadInt32(&polls) != 3 {
		t.Errorf("Expected 3 polls, got %d", polls)
	}
}

func TestOCRServiceWaitForResultFailures(t *testing.T) {
	tests := []struct {
		name    string
		state   string
		wantErr error
	}{
		{"task failed", OCRStateFailed, nil},
		{"never finishes", OCRStateRunning, ErrOCRTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				response := OCRTaskStatusResponse{}
				response.Data.State = tt.state
				response.Data.ErrorMsg = "bad scan"
				json.NewEncoder(w).Encode(response)
			}))
			defer server.Close()

			_, err := newTestOCR(server.URL).WaitForResult(context.Background(), "task-1")
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOCRServiceWaitForResultCancelled(t *testing.T) {
	svc := newTestOCR("http://127.0.0.1:1")
	svc.pollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.WaitForResult(ctx, "task-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestOCRServiceVerifyCallback(t *testing.T) {
	svc := newTestOCR("")
	hash := sha256.Sum256([]byte("uid-1" + "test-seed" + `{"task_id":"t"}`))
	valid := hex.EncodeToString(hash[:])

	tests := []struct {
		name     string
		checksum string
		content  string
		uid      string
		expected bool
	}{
		{"valid", valid, `{"task_id":"t"}`, "uid-1", true},
		{"wrong uid", valid, `{"task_id":"t"}`, "uid-2", false},
		{"tampered content", valid, `{"task_id":"x"}`, "uid-1", false},
		{"garbage", "invalid-checksum", `{"task_id":"t"}`, "uid-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.VerifyCallback(tt.checksum, tt.content, tt.uid); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseCallback(t *testing.T) {
	data, err := ParseCallback(OCRCallbackPayload{Content: `{"task_id":"task-9","state":"done","full_zip_url":"http://z"}`})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if data.TaskID != "task-9" || data.State != OCRStateDone {
		t.Errorf("Unexpected callback data: %+v", data)
	}

	if _, err := ParseCallback(OCRCallbackPayload{Content: "{}"}); err == nil {
		t.Error("Expected error for missing task id")
	}
	if _, err := ParseCallback(OCRCallbackPayload{Content: "nope"}); err == nil {
		t.Error("Expected error for invalid content")
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		expected string
		wantErr  bool
	}{
		{
			name: "prefers full markdown",
			files: map[string]string{
				"doc/a_layout.md": "layout",
				"doc/full.md":     "# Ward Committee Meeting\nWard 12",
			},
			expected: "# Ward Committee Meeting\nWard 12",
		},
		{
			name: "falls back to content list",
			files: map[string]string{
				"doc/content_list.json": `[{"type":"text","text":"Minutes"},{"type":"image"},{"type":"text","text":"Ward 12"}]`,
			},
			expected: "Minutes\n\nWard 12",
		},
		{
			name:    "nothing usable",
			files:   map[string]string{"doc/images/p1.png": "png"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(buildZip(t, tt.files))
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestOCRServiceFetchMarkdown(t *testing.T) {
	archive := buildZip(t, map[string]string{"full.md": "Minutes text"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.zip" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Path == "/broken.zip" {
			w.Write([]byte("not a zip file"))
			return
		}
		w.Write(archive)
	}))
	defer server.Close()

	svc := newTestOCR(server.URL)
	text, err := svc.FetchMarkdown(context.Background(), server.URL+"/result.zip")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "Minutes text" {
		t.Errorf("Expected 'Minutes text', got '%s'", text)
	}

	for _, path := range []string{"/missing.zip", "/broken.zip"} {
		if _, err := svc.FetchMarkdown(context.Background(), server.URL+path); err == nil {
			t.Errorf("Expected error for %s", path)
		}
	}
}
