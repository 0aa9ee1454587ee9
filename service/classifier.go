package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jansaakshi/backend/config"
)

// documents longer than this are truncated before extraction
const maxDocumentChars = 15000

// ErrNoExtraction is returned when the model output holds no usable JSON
var ErrNoExtraction = errors.New("no structured data in model output")

// DocumentClassifier turns meeting-minutes text into structured records
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (*MinutesExtraction, error)
}

// MinutesExtraction is one meeting and the projects it discussed
type MinutesExtraction struct {
	Meeting  ExtractedMeeting   `json:"meeting"`
	Projects []ExtractedProject `json:"projects"`
}

type ExtractedMeeting struct {
	MeetDate  string   `json:"meet_date"`
	MeetTime  string   `json:"meet_time"`
	MeetType  string   `json:"meet_type"`
	Venue     string   `json:"venue"`
	Objective string   `json:"objective"`
	WardNo    string   `json:"ward_number"`
	WardName  string   `json:"ward_name"`
	Attendees []string `json:"attendees"`
}

type ExtractedProject struct {
	ProjectName        string `json:"project_name"`
	Summary            string `json:"summary"`
	WardNo             string `json:"ward_number"`
	WardName           string `json:"ward_name"`
	Budget             Rupees `json:"budget_amount"`
	CorporatorName     string `json:"corporator_name"`
	ContractorName     string `json:"contractor_name"`
	ProjectType        string `json:"project_type"`
	Status             string `json:"status"`
	ApprovalDate       string `json:"approval_date"`
	StartDate          string `json:"start_date"`
	ExpectedCompletion string `json:"expected_completion"`
	ActualCompletion   string `json:"actual_completion"`
	LocationDetails    string `json:"location_details"`
	Timeline           string `json:"timeline"`
}

// Rupees accepts a JSON number or a string such as "₹15,75,000"
type Rupees float64

func (r *Rupees) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*r = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	s = strings.NewReplacer("₹", "", ",", "", "Rs.", "", "Rs", "", " ", "").Replace(s)
	if s == "" {
		*r = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// unparseable amounts are recorded as unknown
		*r = 0
		return nil
	}
	*r = Rupees(v)
	return nil
}

const classifierSystemPrompt = "You are a JSON extraction engine. You read Indian municipal meeting documents " +
	"and return ONLY a valid JSON object. Never return explanations or prose, only JSON."

const classifierPrompt = `I have text from municipal ward or standing committee meeting minutes. The document contains
a header with meeting date, time, venue and ward, an attendees list, and item sections that each
describe a municipal project (name, location, budget, timeline, contractor, corporator, decision).

Return a JSON object like this:

{
  "meeting": {
    "meet_date": "2025-12-15",
    "meet_time": "11:00",
    "meet_type": "Ward Committee",
    "venue": "Ward office hall",
    "objective": "one sentence describing the purpose of the meeting",
    "ward_number": "ward number from the header",
    "ward_name": "ward area name, e.g. Bandra West",
    "attendees": ["names"]
  },
  "projects": [
    {
      "project_name": "exact project name or item heading",
      "summary": "1-2 sentence citizen-friendly description",
      "ward_number": "ward number",
      "ward_name": "ward area name",
      "budget_amount": 1575000,
      "corporator_name": "ward corporator who recommended it",
      "contractor_name": "contractor or company name, or null",
      "project_type": "parks",
      "status": "approved",
      "approval_date": "2025-12-15",
      "start_date": "2026-01-10",
      "expected_completion": "2026-04-30",
      "location_details": "Linking Road, Khar West",
      "timeline": "commencement and completion as written"
    }
  ]
}

RULES:
- project_type must be one of: roads, water_supply, schools, parks, waste_management, healthcare, street_lighting, drainage, other
- status must be one of: approved, ongoing, completed, delayed, pending
- Convert ₹15,75,000 or "Fifteen Lakhs" to 1575000 (numeric rupees); "2 crores" is 20000000
- Dates must be YYYY-MM-DD
- Use an empty projects array when no project was discussed
- Return ONLY the JSON object

DOCUMENT TEXT:
`

// LLMDocumentClassifier extracts minutes with a chat-completion model
type LLMDocumentClassifier struct {
	chat *chatClient
}

var _ DocumentClassifier = (*LLMDocumentClassifier)(nil)

func NewLLMDocumentClassifier(cfg *config.LLMConfig) *LLMDocumentClassifier {
	return &LLMDocumentClassifier{chat: newChatClient(cfg)}
}

func (c *LLMDocumentClassifier) Classify(ctx context.Context, text string) (*MinutesExtraction, error) {
	text = strings.TrimSpace(text)
	if len(text) < 50 {
		return nil, fmt.Errorf("insufficient text extracted from document (%d chars)", len(text))
	}
	if len(text) > maxDocumentChars {
		text = truncateUTF8(text, maxDocumentChars)
	}

	out, err := c.chat.complete(ctx, classifierSystemPrompt, classifierPrompt+text, 0.05, 4096)
	if err != nil {
		return nil, err
	}
	return ParseExtraction(out)
}

// ParseExtraction reads model output that should hold a MinutesExtraction.
// Markdown fences and surrounding prose are tolerated, as is a bare array
// of projects.
func ParseExtraction(out string) (*MinutesExtraction, error) {
	out = stripFences(out)

	if !strings.HasPrefix(out, "[") {
		if obj := firstJSONBlock(out, '{', '}'); obj != "" {
			var ex MinutesExtraction
			if err := json.Unmarshal([]byte(obj), &ex); err == nil && (!ex.Meeting.empty() || len(ex.Projects) > 0) {
				return cleanExtraction(&ex), nil
			}
			var p ExtractedProject
			if err := json.Unmarshal([]byte(obj), &p); err == nil && p.ProjectName != "" {
				return cleanExtraction(&MinutesExtraction{Projects: []ExtractedProject{p}}), nil
			}
		}
	}
	if arr := firstJSONBlock(out, '[', ']'); arr != "" {
		var projects []ExtractedProject
		if err := json.Unmarshal([]byte(arr), &projects); err == nil {
			return cleanExtraction(&MinutesExtraction{Projects: projects}), nil
		}
	}
	return nil, ErrNoExtraction
}

func (m ExtractedMeeting) empty() bool {
	return m.MeetDate == "" && m.Venue == "" && m.Objective == "" && m.WardNo == "" &&
		m.WardName == "" && m.MeetType == "" && len(m.Attendees) == 0
}

func cleanExtraction(ex *MinutesExtraction) *MinutesExtraction {
	kept := ex.Projects[:0]
	for _, p := range ex.Projects {
		p.ProjectName = strings.TrimSpace(p.ProjectName)
		if p.ProjectName == "" {
			continue
		}
		kept = append(kept, p)
	}
	ex.Projects = kept
	if ex.Projects == nil {
		ex.Projects = []ExtractedProject{}
	}
	return ex
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// firstJSONBlock returns the first balanced open...close span, skipping
// brackets inside strings
func firstJSONBlock(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
