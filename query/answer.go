package query

import (
	"fmt"
	"strings"

	"github.com/jansaakshi/backend/model"
)

// FallbackSummary lists the records in plain text. It is used whenever a
// narrative summary cannot be produced.
func FallbackSummary(projects []model.Project, meetings []model.Meeting) string {
	var b strings.Builder

	if len(meetings) > 0 {
		fmt.Fprintf(&b, "Found %d %s.", len(meetings), plural(len(meetings), "meeting", "meetings"))
		for _, m := range meetings {
			fmt.Fprintf(&b, "\n- %s on %s", orDash(m.Objective), orDash(m.MeetDate))
			if m.Venue != "" {
				fmt.Fprintf(&b, " at %s", m.Venue)
			}
			if m.WardName != "" || m.WardNo != "" {
				fmt.Fprintf(&b, " (Ward %s)", wardLabel(m.WardNo, m.WardName))
			}
			if m.ProjectName != "" {
				fmt.Fprintf(&b, ", project: %s", m.ProjectName)
			}
		}
		return b.String()
	}

	fmt.Fprintf(&b, "Found %d %s.", len(projects), plural(len(projects), "project", "projects"))
	for _, p := range projects {
		fmt.Fprintf(&b, "\n- %s in Ward %s is %s", p.ProjectName, wardLabel(p.WardNo, p.WardName), orDash(p.Status))
		if p.Budget > 0 {
			fmt.Fprintf(&b, ", budget ₹%.2f lakhs", p.BudgetLakhs())
		}
		if p.ContractorName != "" {
			fmt.Fprintf(&b, ", contractor %s", p.ContractorName)
		}
		if p.DelayDays > 0 {
			fmt.Fprintf(&b, ", delayed by %d days", p.DelayDays)
		}
	}
	return b.String()
}

// Suggestions returns follow-up hints for a question that found nothing
func Suggestions(intent Intent, fs model.FilterSet) []string {
	if intent == IntentMeeting {
		return []string{
			"Search by ward, for example \"meetings in ward 37\"",
			"Mention a project discussed in the meeting",
			"Browse recent meetings",
		}
	}

	var out []string
	if fs.WardName != "" {
		out = append(out, fmt.Sprintf("Check the spelling of %q or try the ward number", fs.WardName))
	}
	if fs.WardNo == "" {
		out = append(out, "Try a ward number, for example \"ward 37\"")
	}
	if fs.Status != "" || fs.ProjectType != "" {
		out = append(out, "Remove the status or project type to broaden the search")
	}
	out = append(out,
		"Try broader terms such as \"roads\", \"drainage\" or \"water supply\"",
		"Browse all projects for your city",
	)
	return out
}

func notFoundMessage(intent Intent) string {
	if intent == IntentMeeting {
		return "No meetings found matching your question."
	}
	return "No projects found matching your question."
}

func wardLabel(no, name string) string {
	switch {
	case no != "" && name != "":
		return no + " - " + name
	case no != "":
		return no
	case name != "":
		return name
	default:
		return "-"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
