// Package query turns citizen questions into filters, runs them against the
// record store with a widening fallback cascade and ranks what comes back.
package query

import (
	"context"
	"strings"

	"github.com/jansaakshi/backend/model"
)

// Prober checks whether a phrase occurs in a group of text columns
type Prober interface {
	ExistsSubstring(ctx context.Context, column model.TextColumn, phrase string) (bool, error)
}

// State is the working state threaded through the extraction rules
type State struct {
	// Question is the trimmed question in its original case
	Question string
	// Lower is the lower-cased question
	Lower   string
	Filters model.FilterSet
}

// Rule is one step of the extraction cascade. Apply returns true when
// extraction must stop after this rule.
type Rule interface {
	Name() string
	Apply(ctx context.Context, st *State) (stop bool)
}

// Extractor evaluates its rules in order over a question
type Extractor struct {
	rules []Rule
}

// NewExtractor builds an extractor with the default rule order. prober may
// be nil, in which case the store-probed fallback is skipped.
func NewExtractor(prober Prober) *Extractor {
	return &Extractor{rules: DefaultRules(prober)}
}

// NewExtractorWithRules builds an extractor over a custom rule list
func NewExtractorWithRules(rules ...Rule) *Extractor {
	return &Extractor{rules: rules}
}

// DefaultRules returns the standard cascade
func DefaultRules(prober Prober) []Rule {
	return []Rule{
		bareWardRule{},
		wardNumberRule{},
		wardNameRule{},
		locativeRule{},
		projectTypeRule{},
		probeRule{prober: prober},
		explicitPhraseRule{},
		statusRule{},
		keywordsRule{},
	}
}

// Rules returns the names of the configured rules in evaluation order
func (e *Extractor) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Extract derives a FilterSet from question. Non-empty override fields
// replace whatever was inferred. It never fails; an empty result means no
// filter could be derived.
func (e *Extractor) Extract(ctx context.Context, question string, ov model.Overrides) model.FilterSet {
	trimmed := strings.TrimSpace(question)
	st := &State{Question: trimmed, Lower: strings.ToLower(trimmed)}

	if trimmed != "" {
		for _, r := range e.rules {
			if r.Apply(ctx, st) {
				break
			}
		}
	}

	ov.Apply(&st.Filters)
	return st.Filters
}
