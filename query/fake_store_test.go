package query

import (
	"context"
	"strings"

	"github.com/jansaakshi/backend/model"
)

// fakeStore is an in-memory RecordStore with call recording
type fakeStore struct {
	projects []model.Project
	meetings []model.Meeting

	// when set, these override the computed results per call kind
	structured []model.Project
	cityText   []model.Project
	globalText []model.Project
	override   bool

	probeErr error
	probes   []string
	calls    []string
	queries  []model.ProjectQuery
}

func (f *fakeStore) FindProjects(_ context.Context, q model.ProjectQuery) ([]model.Project, error) {
	f.calls = append(f.calls, "structured")
	f.queries = append(f.queries, q)
	if f.override {
		return f.structured, nil
	}
	var out []model.Project
	for _, p := range f.projects {
		if q.CityID != 0 && p.CityID != q.CityID {
			continue
		}
		if q.WardNo != "" && p.WardNo != q.WardNo {
			continue
		}
		if q.WardName != "" && !containsFold(p.WardName, q.WardName) {
			continue
		}
		if q.ProjectType != "" && p.ProjectType != q.ProjectType {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.Contractor != "" && !containsFold(p.ContractorName, q.Contractor) {
			continue
		}
		if q.ProjectName != "" && !containsFold(p.ProjectName, q.ProjectName) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) TextSearch(_ context.Context, cityID int64, words []string) ([]model.Project, error) {
	if cityID == 0 {
		f.calls = append(f.calls, "global")
	} else {
		f.calls = append(f.calls, "keyword")
	}
	if f.override {
		if cityID == 0 {
			return f.globalText, nil
		}
		return f.cityText, nil
	}
	var out []model.Project
	for _, p := range f.projects {
		if cityID != 0 && p.CityID != cityID {
			continue
		}
		text := strings.Join([]string{p.ProjectName, p.Summary, p.LocationDetails, p.WardName, p.ContractorName, p.CorporatorName}, " ")
		for _, w := range words {
			if containsFold(text, w) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ExistsSubstring(_ context.Context, col model.TextColumn, phrase string) (bool, error) {
	f.probes = append(f.probes, string(col)+":"+phrase)
	if f.probeErr != nil {
		return false, f.probeErr
	}
	for _, p := range f.projects {
		var text string
		switch col {
		case model.ColumnProjectName:
			text = p.ProjectName
		case model.ColumnBodyText:
			text = p.Summary + " " + p.LocationDetails + " " + p.Description
		case model.ColumnContractor:
			text = p.ContractorName
		case model.ColumnWard:
			text = p.WardName + " " + p.WardNo
		}
		if containsFold(text, phrase) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SearchMeetings(_ context.Context, cityID int64, wardNo string, words []string, limit int) ([]model.Meeting, error) {
	f.calls = append(f.calls, "meetings")
	var out []model.Meeting
	for _, m := range f.meetings {
		if wardNo != "" && m.WardNo != wardNo {
			continue
		}
		text := strings.Join(append([]string{m.Objective, m.Venue, m.WardName, m.ProjectName}, m.ProjectsDiscussed...), " ")
		for _, w := range words {
			if containsFold(text, w) {
				out = append(out, m)
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) RecentMeetings(_ context.Context, cityID int64, wardNo string, limit int) ([]model.Meeting, error) {
	f.calls = append(f.calls, "recent_meetings")
	var out []model.Meeting
	for _, m := range f.meetings {
		if wardNo == "" || m.WardNo == wardNo {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) MeetingsByBase(_ context.Context, baseID string) ([]model.Meeting, error) {
	f.calls = append(f.calls, "meeting_by_id")
	var out []model.Meeting
	for _, m := range f.meetings {
		if model.MeetingBaseID(m.ID) == baseID {
			out = append(out, m)
		}
	}
	return out, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
