package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jansaakshi/backend/config"
	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/query"
)

// fakeChat is an OpenAI-compatible chat completion endpoint
type fakeChat struct {
	mu       sync.Mutex
	reply    string
	status   int
	requests []map[string]any
}

func (f *fakeChat) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		json.Unmarshal(body, &req)

		f.mu.Lock()
		f.requests = append(f.requests, req)
		reply, status := f.reply, f.status
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}
}

func (f *fakeChat) lastUserMessage(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	msgs := f.requests[len(f.requests)-1]["messages"].([]any)
	return msgs[len(msgs)-1].(map[string]any)["content"].(string)
}

func newFakeLLM(t *testing.T, reply string) (*fakeChat, *config.LLMConfig) {
	t.Helper()
	fake := &fakeChat{reply: reply}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return fake, &config.LLMConfig{
		BaseURL:        server.URL + "/v1/",
		APIKey:         "test-key",
		Model:          "test-model",
		Temperature:    0.3,
		MaxTokens:      500,
		TimeoutSeconds: 5,
	}
}

func TestLLMNarratorSummarize(t *testing.T) {
	fake, cfg := newFakeLLM(t, "  Kandivali West Road Resurfacing is delayed by 290 days.  ")
	narrator := NewLLMNarrator(cfg)

	text, err := narrator.Summarize(context.Background(), query.SummaryRequest{
		Question: "road work in kandivali",
		Projects: []model.Project{{
			ProjectName: "Kandivali West Road Resurfacing", WardNo: "12", WardName: "Kandivali West",
			Budget: 4500000, Status: model.ProjectDelayed, DelayDays: 290, ContractorName: "ABC Infra",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Kandivali West Road Resurfacing is delayed by 290 days.", text)

	prompt := fake.lastUserMessage(t)
	assert.Contains(t, prompt, `User asked: "road work in kandivali"`)
	assert.Contains(t, prompt, "Budget: ₹45.00 lakhs")
	assert.Contains(t, prompt, "Contractor: ABC Infra")
	assert.Contains(t, prompt, "Delay: 290 days")
	assert.Contains(t, prompt, "3-5 sentences")

	fake.mu.Lock()
	req := fake.requests[0]
	fake.mu.Unlock()
	assert.Equal(t, "test-model", req["model"])
	assert.Equal(t, 0.3, req["temperature"])
}

func TestLLMNarratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		status int
	}{
		{"server error", "", http.StatusInternalServerError},
		{"empty reply", "   ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, cfg := newFakeLLM(t, tt.reply)
			fake.status = tt.status

			_, err := NewLLMNarrator(cfg).Summarize(context.Background(), query.SummaryRequest{Question: "q"})
			assert.Error(t, err)
		})
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	projects := make([]model.Project, 12)
	for i := range projects {
		projects[i] = model.Project{ProjectName: "Project"}
	}

	prompt := BuildSummaryPrompt(query.SummaryRequest{
		Question: "meetings",
		Projects: projects,
		Meetings: []model.Meeting{{
			ID: "MEET-20240115-A3F-P1", MeetDate: "2024-01-15", Objective: "Monsoon preparedness",
			ProjectName: "Drain Desilting", Budget: 800000, Attendees: []string{"Rekha Shah"},
		}},
		Prompt: "Answer in one line.",
	})

	assert.Contains(t, prompt, "Project 10: Project")
	assert.NotContains(t, prompt, "Project 11:")
	assert.Contains(t, prompt, "Meeting 1: MEET-20240115-A3F-P1 on 2024-01-15")
	assert.Contains(t, prompt, "budget ₹8.00 lakhs")
	assert.Contains(t, prompt, "Attendees: Rekha Shah")
	assert.True(t, strings.HasSuffix(prompt, "Answer in one line.\n"))
	assert.NotContains(t, prompt, "3-5 sentences")
}

func TestLLMDocumentClassifier(t *testing.T) {
	reply := "```json\n" + `{
		"meeting": {"meet_date": "2024-01-15", "venue": "Kandivali ward office", "objective": "Monsoon works",
			"ward_number": "12", "ward_name": "Kandivali West", "attendees": ["Rekha Shah"]},
		"projects": [
			{"project_name": "Poisar Nullah Widening", "budget_amount": "₹42,50,000", "status": "approved",
			 "project_type": "drainage", "expected_completion": "2024-05-31"},
			{"project_name": "  ", "budget_amount": 1}
		]
	}` + "\n```"
	fake, cfg := newFakeLLM(t, reply)

	text := strings.Repeat("Minutes of the Kandivali ward committee meeting. ", 5)
	ex, err := NewLLMDocumentClassifier(cfg).Classify(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15", ex.Meeting.MeetDate)
	assert.Equal(t, []string{"Rekha Shah"}, ex.Meeting.Attendees)
	require.Len(t, ex.Projects, 1)
	assert.Equal(t, Rupees(4250000), ex.Projects[0].Budget)
	assert.Contains(t, fake.lastUserMessage(t), "DOCUMENT TEXT:\nMinutes of the Kandivali")
}

func TestLLMDocumentClassifierShortText(t *testing.T) {
	_, cfg := newFakeLLM(t, "{}")
	_, err := NewLLMDocumentClassifier(cfg).Classify(context.Background(), "too short")
	assert.Error(t, err)
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name         string
		out          string
		wantProjects []string
		wantVenue    string
		wantErr      bool
	}{
		{
			name:         "bare project array",
			out:          `[{"project_name": "A"}, {"project_name": "B"}]`,
			wantProjects: []string{"A", "B"},
		},
		{
			name:         "prose around object",
			out:          `Here you go: {"meeting": {"venue": "Hall {B}"}, "projects": []} Thanks!`,
			wantProjects: []string{},
			wantVenue:    "Hall {B}",
		},
		{
			name:         "single project object",
			out:          `{"project_name": "Solo", "budget_amount": null}`,
			wantProjects: []string{"Solo"},
		},
		{
			name:    "no json",
			out:     "I could not find any projects.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := ParseExtraction(tt.out)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoExtraction)
				return
			}
			require.NoError(t, err)
			names := []string{}
			for _, p := range ex.Projects {
				names = append(names, p.ProjectName)
			}
			assert.Equal(t, tt.wantProjects, names)
			assert.Equal(t, tt.wantVenue, ex.Meeting.Venue)
		})
	}
}

func TestRupeesUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Rupees
	}{
		{`1575000`, 1575000},
		{`"15,75,000"`, 1575000},
		{`"₹ 42,50,000"`, 4250000},
		{`null`, 0},
		{`"about forty lakhs"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var r Rupees
			require.NoError(t, json.Unmarshal([]byte(tt.in), &r))
			assert.Equal(t, tt.want, r)
		})
	}
}
