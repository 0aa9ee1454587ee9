package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
)

const (
	meetingResultLimit = 10
	// answers are built from at most this many records
	answerRecordLimit = 10
)

// MeetingSearcher is the meeting side of the record store
type MeetingSearcher interface {
	SearchMeetings(ctx context.Context, cityID int64, wardNo string, words []string, limit int) ([]model.Meeting, error)
	RecentMeetings(ctx context.Context, cityID int64, wardNo string, limit int) ([]model.Meeting, error)
	MeetingsByBase(ctx context.Context, baseID string) ([]model.Meeting, error)
}

// RecordStore is everything the query pipeline reads
type RecordStore interface {
	ProjectSearcher
	MeetingSearcher
	Prober
}

// SummaryRequest is the input of a narrative summary
type SummaryRequest struct {
	Question string
	Projects []model.Project
	Meetings []model.Meeting
	// Prompt optionally replaces the default instructions
	Prompt string
}

// Narrator turns records into prose. It may fail.
type Narrator interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// Request is a natural-language question scoped to a city
type Request struct {
	Question  string
	CityID    int64
	Overrides model.Overrides
	Prompt    string
}

// Answer is the full response to a question
type Answer struct {
	Question    string          `json:"query"`
	Intent      Intent          `json:"intent"`
	Filters     model.FilterSet `json:"keywords_extracted"`
	Found       bool            `json:"found"`
	Answer      string          `json:"answer"`
	Notice      string          `json:"notice,omitempty"`
	Suggestions []string        `json:"suggestions"`
	Stage       Stage           `json:"stage"`
	Projects    []model.Project `json:"projects"`
	Meetings    []model.Meeting `json:"meetings"`
}

// Service answers questions: extract, route, search, rank and narrate.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	store        RecordStore
	extractor    *Extractor
	orchestrator *Orchestrator
	narrator     Narrator
}

// NewService wires a query service. narrator may be nil.
func NewService(store RecordStore, narrator Narrator) *Service {
	return &Service{
		store:        store,
		extractor:    NewExtractor(store),
		orchestrator: NewOrchestrator(store),
		narrator:     narrator,
	}
}

// Extract exposes the filter extractor
func (s *Service) Extract(ctx context.Context, question string, ov model.Overrides) model.FilterSet {
	return s.extractor.Extract(ctx, question, ov)
}

// Ask answers a question. Only store failures are returned as errors; no
// results is reported through Found and Suggestions.
func (s *Service) Ask(ctx context.Context, req Request) (*Answer, error) {
	question := strings.TrimSpace(req.Question)
	fs := s.extractor.Extract(ctx, question, req.Overrides)
	intent := Classify(question, fs)

	ans := &Answer{
		Question: question,
		Intent:   intent,
		Filters:  fs,
		Stage:    StageNone,
		Projects: []model.Project{},
		Meetings: []model.Meeting{},
	}

	switch intent {
	case IntentMeeting:
		meetings, err := s.findMeetings(ctx, req.CityID, question, fs, true)
		if err != nil {
			return nil, err
		}
		if meetings != nil {
			ans.Meetings = meetings
		}
	default:
		out, err := s.orchestrator.Search(ctx, req.CityID, question, fs)
		if err != nil {
			return nil, err
		}
		ans.Stage = out.Stage
		if out.Projects != nil {
			ans.Projects = out.Projects
		}

		if intent == IntentAmbiguous {
			meetings, err := s.findMeetings(ctx, req.CityID, question, fs, false)
			if err != nil {
				return nil, err
			}
			if len(meetings) > 0 {
				ans.Intent = IntentMeeting
				ans.Meetings = meetings
				ans.Projects = []model.Project{}
			}
		}
	}

	ans.Found = len(ans.Projects) > 0 || len(ans.Meetings) > 0
	if !ans.Found {
		ans.Answer = notFoundMessage(ans.Intent)
		ans.Suggestions = Suggestions(ans.Intent, fs)
		return ans, nil
	}

	s.narrate(ctx, ans, req.Prompt)
	return ans, nil
}

// findMeetings searches meetings by identifier or words, restricted to the
// extracted ward if any. When explicit is set and the question has no words
// beyond the meeting lexicon and the ward, the most recent meetings are
// returned.
func (s *Service) findMeetings(ctx context.Context, cityID int64, question string, fs model.FilterSet, explicit bool) ([]model.Meeting, error) {
	if id := model.MeetingIDPattern.FindString(question); id != "" {
		meetings, err := s.store.MeetingsByBase(ctx, model.MeetingBaseID(id))
		if err != nil {
			return nil, fmt.Errorf("failed to load meeting %s: %w", id, err)
		}
		return meetings, nil
	}

	words := SearchWords(question)
	if explicit {
		words = MeetingSearchWords(question)
	}
	words = withoutWardNumber(words, fs.WardNo)
	if explicit {
		if len(words) == 0 {
			meetings, err := s.store.RecentMeetings(ctx, cityID, fs.WardNo, meetingResultLimit)
			if err != nil {
				return nil, fmt.Errorf("failed to list recent meetings: %w", err)
			}
			return meetings, nil
		}
	}
	if len(words) == 0 {
		return nil, nil
	}

	meetings, err := s.store.SearchMeetings(ctx, cityID, fs.WardNo, words, meetingResultLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search meetings: %w", err)
	}
	return meetings, nil
}

// withoutWardNumber drops the ward number from words once it is applied as
// a ward predicate
func withoutWardNumber(words []string, wardNo string) []string {
	if wardNo == "" {
		return words
	}
	ward := strings.TrimLeft(wardNo, "0")
	var out []string
	for _, w := range words {
		if isNumeric(w) && strings.TrimLeft(w, "0") == ward {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (s *Service) narrate(ctx context.Context, ans *Answer, prompt string) {
	req := SummaryRequest{
		Question: ans.Question,
		Projects: head(ans.Projects, answerRecordLimit),
		Meetings: ans.Meetings,
		Prompt:   prompt,
	}

	if s.narrator != nil {
		text, err := s.narrator.Summarize(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			ans.Answer = text
			return
		}
		logger.Warn(ctx, "narrative summary failed, using fallback", "error", err)
		ans.Notice = "The summary service is unavailable; showing a direct listing instead."
	}

	ans.Answer = FallbackSummary(req.Projects, req.Meetings)
}

func head(projects []model.Project, n int) []model.Project {
	if len(projects) > n {
		return projects[:n]
	}
	return projects
}
