package query

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
)

const (
	minWard = 1
	maxWard = 70
	// highest ward number scanned for in running text
	maxScannedWard = 69
	// only this many content tokens are used to build probe phrases
	maxProbeTokens = 8
	maxPhraseWords = 3
)

// bareWardRule treats a question that is only a ward number as that ward
type bareWardRule struct{}

func (bareWardRule) Name() string { return "bare_ward_number" }

func (bareWardRule) Apply(_ context.Context, st *State) bool {
	n, err := strconv.Atoi(st.Lower)
	if err != nil || n < minWard || n > maxWard {
		return false
	}
	st.Filters.WardNo = strconv.Itoa(n)
	return true
}

var wardPhraseReplacer = strings.NewReplacer(
	"ward no.", "ward no",
	"ward number", "ward no",
	"ward #", "ward ",
	"ward-", "ward ",
)

// wardZeroPad strips leading zeros from a ward number, "ward 037" -> "ward 37"
var wardZeroPad = regexp.MustCompile(`\bward(\s*(?:no\s+)?)0+([1-9])`)

// wardNumberRule finds "ward 37", "ward no 37" or "ward37". Numbers are
// scanned from high to low so that 3 cannot match inside 37.
type wardNumberRule struct{}

func (wardNumberRule) Name() string { return "ward_number_phrase" }

func (wardNumberRule) Apply(_ context.Context, st *State) bool {
	text := wardZeroPad.ReplaceAllString(wardPhraseReplacer.Replace(st.Lower), "ward${1}${2}")
	for i := maxScannedWard; i >= minWard; i-- {
		for _, pattern := range []string{"ward %d", "ward no %d", "ward%d"} {
			if containsNumberPhrase(text, fmt.Sprintf(pattern, i)) {
				st.Filters.WardNo = strconv.Itoa(i)
				return false
			}
		}
	}
	return false
}

// containsNumberPhrase reports whether phrase occurs in text without being
// followed by another digit
func containsNumberPhrase(text, phrase string) bool {
	for from := 0; from < len(text); {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return false
		}
		end := from + idx + len(phrase)
		if end == len(text) || text[end] < '0' || text[end] > '9' {
			return true
		}
		from = from + idx + 1
	}
	return false
}

var (
	wardNamePattern  = regexp.MustCompile(`\bward(?:\s+no\.?)?\s+(.+?)(?:\s+(?:by|about|in)\b|[,?!;]|\.(?:\s|$)|$)`)
	locativePattern  = regexp.MustCompile(`\b(?:in|at|around|near)\s+(.+?)(?:\s+(?:by|about|in)\b|[,?!;]|\.(?:\s|$)|$)`)
	inProgressPhrase = regexp.MustCompile(`\bin\s+progress\b`)
)

// wardNameRule captures a ward name written after "ward"
type wardNameRule struct{}

func (wardNameRule) Name() string { return "ward_name_phrase" }

func (wardNameRule) Apply(_ context.Context, st *State) bool {
	if st.Filters.WardNo != "" {
		return false
	}
	if name := firstPlaceCapture(wardNamePattern, st.Lower); name != "" {
		st.Filters.WardName = name
	}
	return false
}

// locativeRule captures a place after in/at/around/near when no ward was named
type locativeRule struct{}

func (locativeRule) Name() string { return "locative_phrase" }

func (locativeRule) Apply(_ context.Context, st *State) bool {
	if st.Filters.WardNo != "" || st.Filters.WardName != "" {
		return false
	}
	text := inProgressPhrase.ReplaceAllString(st.Lower, " ")
	if name := firstPlaceCapture(locativePattern, text); name != "" {
		st.Filters.WardName = name
	}
	return false
}

// firstPlaceCapture returns the first capture that neither starts with a
// number nor is made only of stopwords
func firstPlaceCapture(re *regexp.Regexp, text string) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		name := trimStopwords(strings.TrimSpace(m[1]))
		if name == "" || isNumeric(strings.Fields(name)[0]) {
			continue
		}
		return name
	}
	return ""
}

// typeKeyword maps a keyword to either a project type or a name fragment
type typeKeyword struct {
	key         string
	projectType string
	nameLike    string
}

// projectTypeTable is evaluated in order; the first key found wins
var projectTypeTable = []typeKeyword{
	{key: "road", projectType: model.TypeRoads},
	{key: "drain", projectType: model.TypeDrainage},
	{key: "water", projectType: model.TypeWaterSupply},
	{key: "repair", nameLike: "repair"},
	{key: "construction", nameLike: "construction"},
	{key: "park", projectType: model.TypeParks},
	{key: "light", projectType: model.TypeStreetLighting},
	{key: "sidewalk", projectType: model.TypeRoads},
	{key: "school", projectType: model.TypeSchools},
	{key: "bus", nameLike: "bus"},
	{key: "waste", projectType: model.TypeWasteManagement},
	{key: "toilet", projectType: model.TypeWasteManagement},
	{key: "traffic", projectType: model.TypeRoads},
	{key: "garden", projectType: model.TypeParks},
	{key: "storm", projectType: model.TypeDrainage},
}

// projectTypeRule sets at most one type filter from the keyword table
type projectTypeRule struct{}

func (projectTypeRule) Name() string { return "project_type_keyword" }

func (projectTypeRule) Apply(_ context.Context, st *State) bool {
	for _, kw := range projectTypeTable {
		if !strings.Contains(st.Lower, kw.key) {
			continue
		}
		if kw.projectType != "" {
			st.Filters.ProjectType = kw.projectType
		} else {
			st.Filters.ProjectName = kw.nameLike
		}
		return false
	}
	return false
}

var probeColumns = []model.TextColumn{
	model.ColumnProjectName,
	model.ColumnBodyText,
	model.ColumnContractor,
	model.ColumnWard,
}

// probeRule looks phrases up in the store when nothing else matched.
// Longer phrases go first, then left to right; the first hit wins.
type probeRule struct {
	prober Prober
}

func (probeRule) Name() string { return "store_probe" }

func (r probeRule) Apply(ctx context.Context, st *State) bool {
	if r.prober == nil || st.Filters.HasStructured() {
		return false
	}

	tokens := contentTokens(st.Lower)
	if len(tokens) > maxProbeTokens {
		tokens = tokens[:maxProbeTokens]
	}

	for n := maxPhraseWords; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if len(phrase) < 2 {
				continue
			}
			for _, col := range probeColumns {
				ok, err := r.prober.ExistsSubstring(ctx, col, phrase)
				if err != nil {
					logger.Warn(ctx, "filter probe failed, continuing without it",
						"column", string(col),
						"error", err,
					)
					return false
				}
				if ok {
					assignProbeHit(&st.Filters, col, phrase)
					return false
				}
			}
		}
	}
	return false
}

func assignProbeHit(f *model.FilterSet, col model.TextColumn, phrase string) {
	switch col {
	case model.ColumnProjectName:
		f.ProjectName = phrase
	case model.ColumnBodyText:
		f.BodyText = phrase
	case model.ColumnContractor:
		f.ContractorName = phrase
	case model.ColumnWard:
		f.WardName = phrase
	}
}

var (
	projectLabelPattern    = regexp.MustCompile(`(?i)\bproject\s*:\s*([^,?;]+)`)
	contractorLabelPattern = regexp.MustCompile(`(?i)\bcontractor\s*:\s*([^,?;]+)`)
	byNamePattern          = regexp.MustCompile(`\bby\s+([A-Z][\w.&'-]*(?:\s+[A-Z][\w.&'-]*)*)`)
	aboutLabelPattern      = regexp.MustCompile(`(?i)\b(?:about|details|regarding)\s*:\s*([^,?;]+)`)
)

// explicitPhraseRule reads labelled phrases and overwrites earlier guesses
type explicitPhraseRule struct{}

func (explicitPhraseRule) Name() string { return "explicit_phrase" }

func (explicitPhraseRule) Apply(_ context.Context, st *State) bool {
	if v := firstCapture(projectLabelPattern, st.Question); v != "" {
		st.Filters.ProjectName = v
	}
	if v := firstCapture(contractorLabelPattern, st.Question); v != "" {
		st.Filters.ContractorName = v
	} else if v := firstCapture(byNamePattern, st.Question); v != "" {
		st.Filters.ContractorName = v
	}
	if v := firstCapture(aboutLabelPattern, st.Question); v != "" {
		st.Filters.BodyText = v
	}
	return false
}

func firstCapture(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(m[1]))
}

var statusPatterns = []struct {
	re     *regexp.Regexp
	status string
}{
	{regexp.MustCompile(`\bdelay(?:ed|s)?\b`), model.ProjectDelayed},
	{regexp.MustCompile(`\bpending\b`), model.ProjectPending},
	{regexp.MustCompile(`\b(?:in progress|ongoing|progress)\b`), model.ProjectOngoing},
	{regexp.MustCompile(`\bstalled\b`), model.ProjectStalled},
	{regexp.MustCompile(`\b(?:completed|finished)\b`), model.ProjectCompleted},
}

// statusRule sets the status from the first matching status keyword
type statusRule struct{}

func (statusRule) Name() string { return "status_keyword" }

func (statusRule) Apply(_ context.Context, st *State) bool {
	for _, sp := range statusPatterns {
		if sp.re.MatchString(st.Lower) {
			st.Filters.Status = sp.status
			return false
		}
	}
	return false
}

// keywordsRule records the question's search words for ranking
type keywordsRule struct{}

func (keywordsRule) Name() string { return "keywords" }

func (keywordsRule) Apply(_ context.Context, st *State) bool {
	st.Filters.Keywords = SearchWords(st.Question)
	return false
}
