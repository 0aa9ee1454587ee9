package query

import (
	"sort"
	"strings"

	"github.com/jansaakshi/backend/model"
)

// Score counts the distinct words found anywhere in the project's name,
// summary, location, contractor or corporator
func Score(p *model.Project, words []string) int {
	text := strings.ToLower(strings.Join([]string{
		p.ProjectName, p.Summary, p.LocationDetails, p.ContractorName, p.CorporatorName,
	}, " "))

	score := 0
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		if strings.Contains(text, w) {
			score++
		}
	}
	return score
}

// Rank orders projects by score and then by delay, both descending. Ties
// keep the store's order. The input slice is not modified.
func Rank(projects []model.Project, words []string) []model.Project {
	if len(projects) < 2 {
		return projects
	}

	type scored struct {
		p     model.Project
		score int
	}
	rows := make([]scored, len(projects))
	for i := range projects {
		rows[i] = scored{p: projects[i], score: Score(&projects[i], words)}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].p.DelayDays > rows[j].p.DelayDays
	})

	ranked := make([]model.Project, len(rows))
	for i, r := range rows {
		ranked[i] = r.p
	}
	return ranked
}
