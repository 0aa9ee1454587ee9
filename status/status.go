// Package status derives a project's status and delay from its dates.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/jansaakshi/backend/model"
)

const (
	// completions within this many days of the deadline count as on time
	completionGraceDays = 2
	// overdue by at most this many days is reported as slightly overdue
	slightDelayDays = 30
	// gap between approval and a future start that is worth flagging
	upcomingGapDays = 45
	// gap between approval and start that marks a slow start
	slowStartGapDays = 60
)

// Result is the outcome of a status computation
type Result struct {
	Status    string `json:"status"`
	DelayDays int    `json:"delay_days"`
	Note      string `json:"note"`
}

// Compute derives status, delay and a short note from project dates.
// A zero time means the date is absent. The result depends only on the
// arguments, so recomputing with the same inputs is a no-op.
func Compute(approval, start, expected, actual, today time.Time) Result {
	today = day(today)

	if !actual.IsZero() {
		if expected.IsZero() {
			return Result{Status: model.ProjectCompleted, Note: "Completed"}
		}
		diff := daysBetween(expected, actual)
		switch {
		case diff > completionGraceDays:
			return Result{
				Status:    model.ProjectCompleted,
				DelayDays: diff,
				Note:      fmt.Sprintf("Completed %d days late", diff),
			}
		case diff < -completionGraceDays:
			return Result{Status: model.ProjectCompleted, Note: fmt.Sprintf("Completed %d days ahead of schedule", -diff)}
		default:
			return Result{Status: model.ProjectCompleted, Note: "Completed on schedule"}
		}
	}

	if !start.IsZero() && day(start).After(today) {
		note := "Upcoming, starts " + start.Format(model.DateLayout)
		if !approval.IsZero() {
			if gap := daysBetween(approval, start); gap > upcomingGapDays {
				note = fmt.Sprintf("Upcoming, %d days between approval and start", gap)
			}
		}
		return Result{Status: model.ProjectApproved, Note: note}
	}

	if !expected.IsZero() {
		if today.After(day(expected)) {
			overdue := daysBetween(expected, today)
			note := fmt.Sprintf("Overdue by %d days", overdue)
			if overdue <= slightDelayDays {
				note = fmt.Sprintf("Slightly overdue by %d days", overdue)
			}
			return Result{Status: model.ProjectDelayed, DelayDays: overdue, Note: note}
		}
		if !approval.IsZero() && !start.IsZero() {
			if gap := daysBetween(approval, start); gap > slowStartGapDays {
				return Result{
					Status: model.ProjectOngoing,
					Note:   fmt.Sprintf("Within deadline, slow start of %d days after approval", gap),
				}
			}
		}
		return Result{Status: model.ProjectOngoing, Note: "Within deadline"}
	}

	switch {
	case !start.IsZero():
		return Result{Status: model.ProjectOngoing, Note: "No deadline recorded"}
	case !approval.IsZero():
		return Result{Status: model.ProjectPending, Note: "Approved, not started"}
	default:
		return Result{Status: model.ProjectUnknown, Note: "Insufficient date information"}
	}
}

// ComputeDates parses YYYY-MM-DD strings and calls Compute. Empty strings
// are treated as absent; any unparsable date yields an unknown status.
func ComputeDates(approval, start, expected, actual string, today time.Time) Result {
	dates := make([]time.Time, 4)
	for i, s := range []string{approval, start, expected, actual} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		t, err := ParseDate(s)
		if err != nil {
			return Result{Status: model.ProjectUnknown, Note: "Date parsing error"}
		}
		dates[i] = t
	}
	return Compute(dates[0], dates[1], dates[2], dates[3], today)
}

// ForProject recomputes the status of p as of today
func ForProject(p *model.Project, today time.Time) Result {
	return ComputeDates(p.ApprovalDate, p.StartDate, p.ExpectedCompletion, p.ActualCompletion, today)
}

// ParseDate accepts a bare date or an RFC 3339 timestamp
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return day(t), nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(day(to).Sub(day(from)).Hours() / 24)
}
