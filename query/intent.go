package query

import (
	"regexp"
	"strings"

	"github.com/jansaakshi/backend/model"
)

// Intent is where a question should be routed
type Intent string

const (
	IntentProject   Intent = "project"
	IntentMeeting   Intent = "meeting"
	IntentAmbiguous Intent = "ambiguous"
)

var meetingLexicon = regexp.MustCompile(`\b(?:meetings?|minutes|agendas?|standing committee|committee meeting|meeting date|meeting time|attendees|venues?)\b`)

var projectLexicon = regexp.MustCompile(`\b(?:projects?|contractors?|corporators?|budgets?|works?|delay(?:ed|s)?|tender)\b`)

// meetingWords are lexicon words that carry no search signal inside the
// meetings table itself
var meetingWords = map[string]bool{
	"meeting": true, "meetings": true, "minutes": true, "agenda": true,
	"agendas": true, "committee": true, "standing": true, "attendees": true,
	"venue": true, "venues": true, "date": true, "time": true,
}

// Classify routes a question to meeting or project search. Questions that
// name neither explicitly are ambiguous and get both searches.
func Classify(question string, fs model.FilterSet) Intent {
	lower := strings.ToLower(question)
	if meetingLexicon.MatchString(lower) || model.MeetingIDPattern.MatchString(question) {
		return IntentMeeting
	}
	if fs.HasStructured() || projectLexicon.MatchString(lower) {
		return IntentProject
	}
	return IntentAmbiguous
}

// MeetingSearchWords returns the question's search words minus the meeting
// lexicon
func MeetingSearchWords(question string) []string {
	var out []string
	for _, w := range SearchWords(question) {
		if !meetingWords[w] {
			out = append(out, w)
		}
	}
	return out
}
