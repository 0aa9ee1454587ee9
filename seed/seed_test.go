package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/store"
)

var seedDay = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "seed.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func projectByName(t *testing.T, s *store.Store, name string) model.Project {
	t.Helper()
	found, err := s.FindProjects(context.Background(), model.ProjectQuery{ProjectName: name})
	require.NoError(t, err)
	require.Len(t, found, 1, name)
	return found[0]
}

func TestDefaultDatasetParses(t *testing.T) {
	ds, err := Parse(Default())
	require.NoError(t, err)

	names := make([]string, 0, len(ds.Cities))
	for _, c := range ds.Cities {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"mumbai", "delhi"}, names)
	assert.NotEmpty(t, ds.Cities[0].Projects)
	assert.NotEmpty(t, ds.Cities[0].Meetings)
}

func TestLoadComputesStatuses(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	res, err := Load(ctx, s, Default(), seedDay)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Cities)
	assert.Equal(t, 1, res.Users)

	tests := []struct {
		name      string
		status    string
		delayDays int
	}{
		{"Kandivali West Road Resurfacing", model.ProjectDelayed, 31},
		{"Poisar River Cleaning Phase 2", model.ProjectOngoing, 0},
		{"Mahavir Nagar Garden Upgrade", model.ProjectCompleted, 0},
		{"Saket District Park Renovation", model.ProjectCompleted, 27},
		{"Colaba Heritage Walk", model.ProjectPending, 0},
		{"Worli Seaface Promenade Repair", model.ProjectStalled, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := projectByName(t, s, tt.name)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.delayDays, p.DelayDays)
		})
	}

	p := projectByName(t, s, "Kandivali West Road Resurfacing")
	assert.Equal(t, "mumbai", p.CityName)
	assert.Equal(t, model.TypeRoads, p.ProjectType)
	assert.Equal(t, "seed_data", p.SourcePDF)
}

func TestLoadIsIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	first, err := Load(ctx, s, Default(), seedDay)
	require.NoError(t, err)
	before, err := s.AllProjects(ctx)
	require.NoError(t, err)

	second, err := Load(ctx, s, Default(), seedDay)
	require.NoError(t, err)
	after, err := s.AllProjects(ctx)
	require.NoError(t, err)

	assert.Equal(t, len(before), len(after))
	assert.Equal(t, first.Projects, second.Projects)
	assert.Zero(t, second.Users, "existing users are left alone")

	cities, err := s.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 2)

	meetings, err := s.MeetingsByBase(ctx, "MEET-20250115-S01")
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Len(t, meetings[0].ProjectsDiscussed, 3)
}

func TestSeededUserCanBeFound(t *testing.T) {
	s := openStore(t)
	_, err := Load(context.Background(), s, Default(), seedDay)
	require.NoError(t, err)

	u, err := s.GetUserByUsername(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEqual(t, "pass1234", u.PasswordHash)
}

func TestParseRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "cities:\n  - name: pune\n    population: 7\n"},
		{"missing city name", "cities:\n  - lat: 1\n"},
		{"unnamed project", "cities:\n  - name: pune\n    projects:\n      - ward_no: \"1\"\n"},
		{"bad meeting id", "cities:\n  - name: pune\n    meetings:\n      - id: M-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
