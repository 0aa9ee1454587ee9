package query

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jansaakshi/backend/model"
)

func TestExtractBareWardNumber(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	got := e.Extract(ctx, "37", model.Overrides{})
	assert.Equal(t, model.FilterSet{WardNo: "37"}, got)

	for i := 1; i <= 70; i++ {
		got := e.Extract(ctx, " "+strconv.Itoa(i)+" ", model.Overrides{})
		require.Equal(t, model.FilterSet{WardNo: strconv.Itoa(i)}, got, "ward %d", i)
	}

	for _, q := range []string{"0", "71", "-3"} {
		got := e.Extract(ctx, q, model.Overrides{})
		assert.Empty(t, got.WardNo, "question %q", q)
	}
}

func TestExtractBareWardStopsCascade(t *testing.T) {
	store := &fakeStore{}
	e := NewExtractor(store)

	got := e.Extract(context.Background(), "12", model.Overrides{})
	assert.Equal(t, model.FilterSet{WardNo: "12"}, got)
	assert.Empty(t, store.probes)
}

func TestExtractWardNumberScansDescending(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	tests := []struct {
		question string
		want     string
	}{
		{"projects in ward 37", "37"},
		{"projects in ward 3", "3"},
		{"Ward No. 12 road work", "12"},
		{"ward number 45 drains", "45"},
		{"anything in ward69?", "69"},
		{"ward 7, please", "7"},
		{"ward no. 037 roads", "37"},
		{"ward 05 drains", "5"},
		{"Ward number 012?", "12"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := e.Extract(ctx, tt.question, model.Overrides{})
			assert.Equal(t, tt.want, got.WardNo)
			assert.Empty(t, got.WardName)
		})
	}
}

func TestExtractWardNumberIgnoresLargerNumbers(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), "ward 75 projects", model.Overrides{})
	assert.Empty(t, got.WardNo)
}

func TestExtractWardNameRejectsNumberLedCapture(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), "ward 099 roads", model.Overrides{})
	assert.Empty(t, got.WardNo)
	assert.Empty(t, got.WardName)
}

func TestExtractWardName(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	tests := []struct {
		question string
		want     string
	}{
		{"projects in ward kandivali west by abc", "kandivali west"},
		{"ward andheri east, delayed", "andheri east"},
		{"show ward k-west about roads", "k-west"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := e.Extract(ctx, tt.question, model.Overrides{})
			assert.Equal(t, tt.want, got.WardName)
			assert.Empty(t, got.WardNo)
		})
	}
}

func TestExtractLocative(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	tests := []struct {
		question string
		want     string
	}{
		{"delayed road projects in Kandivali", "kandivali"},
		{"parks near the Borivali area?", "borivali"},
		{"projects in progress at Malad", "malad"},
		{"water supply around Dahisar, please", "dahisar"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := e.Extract(ctx, tt.question, model.Overrides{})
			assert.Equal(t, tt.want, got.WardName)
		})
	}
}

func TestExtractLocativeSkippedWhenWardFound(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), "roads in ward 37 near Kandivali", model.Overrides{})
	assert.Equal(t, "37", got.WardNo)
	assert.Empty(t, got.WardName)
}

func TestExtractProjectType(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	tests := []struct {
		question string
		typ      string
		name     string
	}{
		{"road resurfacing", model.TypeRoads, ""},
		{"storm water drain cleaning", model.TypeDrainage, ""},
		{"street light repairs", "", "repair"},
		{"new school building", model.TypeSchools, ""},
		{"bus depot", "", "bus"},
		{"garden upgrade", model.TypeParks, ""},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := e.Extract(ctx, tt.question, model.Overrides{})
			assert.Equal(t, tt.typ, got.ProjectType)
			assert.Equal(t, tt.name, got.ProjectName)
		})
	}
}

func TestExtractProbeOrder(t *testing.T) {
	store := &fakeStore{projects: []model.Project{
		{ProjectName: "Eastern Freeway Extension", ContractorName: "Acme Builders"},
	}}
	e := NewExtractor(store)

	got := e.Extract(context.Background(), "acme builders eastern freeway", model.Overrides{})

	// longest phrase first, left to right, columns in priority order
	require.GreaterOrEqual(t, len(store.probes), 5)
	assert.Equal(t, []string{
		"project_name:acme builders eastern",
		"body_text:acme builders eastern",
		"contractor:acme builders eastern",
		"ward:acme builders eastern",
		"project_name:builders eastern freeway",
	}, store.probes[:5])

	assert.Equal(t, "acme builders", got.ContractorName)
	assert.Empty(t, got.ProjectName)
}

func TestExtractProbeOnlyWhenNothingElseFound(t *testing.T) {
	store := &fakeStore{projects: []model.Project{{ProjectName: "Road Resurfacing"}}}
	e := NewExtractor(store)

	e.Extract(context.Background(), "road resurfacing", model.Overrides{})
	assert.Empty(t, store.probes)
}

func TestExtractProbeFailureDegrades(t *testing.T) {
	store := &fakeStore{probeErr: errors.New("database is locked")}
	e := NewExtractor(store)

	got := e.Extract(context.Background(), "eastern freeway pending", model.Overrides{})

	assert.Len(t, store.probes, 1)
	assert.Empty(t, got.ProjectName)
	assert.Equal(t, model.ProjectPending, got.Status)
}

func TestExtractExplicitPhrasesOverride(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	got := e.Extract(ctx, "road work project: Coastal Road, contractor: L&T", model.Overrides{})
	assert.Equal(t, "coastal road", got.ProjectName)
	assert.Equal(t, "l&t", got.ContractorName)
	assert.Equal(t, model.TypeRoads, got.ProjectType)

	got = e.Extract(ctx, "bus projects handled by ABC Infra in ward 5", model.Overrides{})
	assert.Equal(t, "abc infra", got.ContractorName)
	assert.Equal(t, "5", got.WardNo)

	got = e.Extract(ctx, "details: footpath widening", model.Overrides{})
	assert.Equal(t, "footpath widening", got.BodyText)
}

func TestExtractStatus(t *testing.T) {
	e := NewExtractor(nil)
	ctx := context.Background()

	tests := []struct {
		question string
		want     string
	}{
		{"which works are delayed", model.ProjectDelayed},
		{"pending approvals", model.ProjectPending},
		{"work in progress", model.ProjectOngoing},
		{"ongoing projects", model.ProjectOngoing},
		{"stalled bridges", model.ProjectStalled},
		{"finished works", model.ProjectCompleted},
		{"budget of the flyover", ""},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(ctx, tt.question, model.Overrides{}).Status)
		})
	}
}

func TestExtractOverridesWin(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), "delayed roads in ward 37", model.Overrides{
		WardNo: "12",
		Status: model.ProjectCompleted,
	})
	assert.Equal(t, "12", got.WardNo)
	assert.Equal(t, model.ProjectCompleted, got.Status)
	assert.Equal(t, model.TypeRoads, got.ProjectType)
}

func TestExtractEmptyQuestion(t *testing.T) {
	store := &fakeStore{}
	got := NewExtractor(store).Extract(context.Background(), "   ", model.Overrides{})
	assert.True(t, got.IsEmpty())
	assert.Empty(t, store.probes)
}

func TestExtractKeywords(t *testing.T) {
	got := NewExtractor(nil).Extract(context.Background(), "What is the status of the Eastern Freeway?", model.Overrides{})
	assert.Equal(t, []string{"eastern", "freeway"}, got.Keywords)
}

func TestDefaultRuleOrder(t *testing.T) {
	assert.Equal(t, []string{
		"bare_ward_number",
		"ward_number_phrase",
		"ward_name_phrase",
		"locative_phrase",
		"project_type_keyword",
		"store_probe",
		"explicit_phrase",
		"status_keyword",
		"keywords",
	}, NewExtractor(nil).Rules())
}

type stopRule struct{}

func (stopRule) Name() string { return "stop" }

func (stopRule) Apply(_ context.Context, st *State) bool {
	st.Filters.Status = "stopped"
	return true
}

func TestCustomRulesStopEarly(t *testing.T) {
	e := NewExtractorWithRules(stopRule{}, statusRule{})
	got := e.Extract(context.Background(), "delayed", model.Overrides{})
	assert.Equal(t, "stopped", got.Status)
}
