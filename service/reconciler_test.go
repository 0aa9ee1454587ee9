package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/metrics"
	"github.com/jansaakshi/backend/store"
)

func newReconcileStore(t *testing.T) (*store.Store, int64) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "reconcile.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	city, err := s.EnsureCity(context.Background(), model.City{Name: "mumbai"})
	require.NoError(t, err)
	return s, city
}

func TestReconcilerRunOnce(t *testing.T) {
	ctx := context.Background()
	s, city := newReconcileStore(t)

	projects := []model.Project{
		{CityID: city, ProjectName: "Overdue Road", Status: model.ProjectOngoing,
			ApprovalDate: "2023-01-10", StartDate: "2023-02-01", ExpectedCompletion: "2023-08-16"},
		{CityID: city, ProjectName: "Stalled Bridge", Status: model.ProjectStalled,
			ExpectedCompletion: "2023-01-01"},
		{CityID: city, ProjectName: "Undated Park", Status: model.ProjectCompleted},
		{CityID: city, ProjectName: "Future School", Status: model.ProjectOngoing,
			ApprovalDate: "2024-05-01", StartDate: "2024-07-01", ExpectedCompletion: "2025-03-31"},
	}
	for i := range projects {
		_, err := s.UpsertProject(ctx, &projects[i])
		require.NoError(t, err)
	}

	m := metrics.New()
	r := NewReconciler(s, m)
	r.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }

	scanned, updated, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, scanned)
	assert.Equal(t, 2, updated)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReconcileUpdates))

	road, err := s.GetProject(ctx, projects[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectDelayed, road.Status)
	assert.Equal(t, 290, road.DelayDays)

	bridge, err := s.GetProject(ctx, projects[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStalled, bridge.Status)

	park, err := s.GetProject(ctx, projects[2].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectCompleted, park.Status)

	school, err := s.GetProject(ctx, projects[3].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectApproved, school.Status)

	_, updated, err = r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated, "second pass on the same day changes nothing")
}

type failingStatusStore struct{}

func (failingStatusStore) AllProjects(context.Context) ([]model.Project, error) {
	return nil, model.ErrStoreUnavailable
}

func (failingStatusStore) UpdateProjectStatus(context.Context, int64, string, int, string) error {
	return nil
}

func TestReconcilerStoreFailure(t *testing.T) {
	_, _, err := NewReconciler(failingStatusStore{}, nil).RunOnce(context.Background())
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))
}

func TestReconcilerSchedule(t *testing.T) {
	r := NewReconciler(failingStatusStore{}, nil)
	assert.Error(t, r.Start("not a schedule"))

	require.NoError(t, r.Start("@daily"))
	r.Stop()
}
