package query

import (
	"context"
	"fmt"

	"github.com/jansaakshi/backend/model"
)

// ProjectSearcher is the part of the record store the cascade needs
type ProjectSearcher interface {
	FindProjects(ctx context.Context, q model.ProjectQuery) ([]model.Project, error)
	TextSearch(ctx context.Context, cityID int64, words []string) ([]model.Project, error)
}

// Stage names which step of the cascade produced a result
type Stage string

const (
	StageNone       Stage = "none"
	StageStructured Stage = "structured"
	StageKeyword    Stage = "keyword"
	StageGlobal     Stage = "global"
)

// Outcome is the result of a cascade run
type Outcome struct {
	Projects []model.Project
	// Stage is the last step attempted
	Stage Stage
}

// Orchestrator runs the search cascade: structured filters, then the raw
// question as keywords within the city, then the same keywords in every city.
type Orchestrator struct {
	store ProjectSearcher
}

// NewOrchestrator creates an orchestrator over store
func NewOrchestrator(store ProjectSearcher) *Orchestrator {
	return &Orchestrator{store: store}
}

// Search executes fs against the store, widening scope until something is
// found. An empty filter set never turns into an unfiltered listing.
func (o *Orchestrator) Search(ctx context.Context, cityID int64, question string, fs model.FilterSet) (Outcome, error) {
	out := Outcome{Stage: StageNone}

	if fs.HasStructured() {
		out.Stage = StageStructured
		projects, err := o.store.FindProjects(ctx, fs.Query(cityID))
		if err != nil {
			return out, fmt.Errorf("failed to run structured search: %w", err)
		}
		if len(projects) > 0 {
			out.Projects = projects
			return out, nil
		}
	}

	words := SearchWords(question)
	if len(words) == 0 {
		return out, nil
	}

	out.Stage = StageKeyword
	projects, err := o.store.TextSearch(ctx, cityID, words)
	if err != nil {
		return out, fmt.Errorf("failed to run keyword search: %w", err)
	}
	if len(projects) > 0 || cityID == 0 {
		out.Projects = Rank(projects, words)
		return out, nil
	}

	out.Stage = StageGlobal
	projects, err = o.store.TextSearch(ctx, 0, words)
	if err != nil {
		return out, fmt.Errorf("failed to run global keyword search: %w", err)
	}
	out.Projects = Rank(projects, words)
	return out, nil
}
