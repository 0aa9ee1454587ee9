package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Meeting is one stored row of a meeting-minutes summary. A physical
// meeting that discussed several projects is stored as several rows whose
// IDs share a base and carry a -P{n} suffix.
type Meeting struct {
	ID                string    `json:"meeting_id"`
	CityID            int64     `json:"city_id"`
	WardNo            string    `json:"ward_no"`
	WardName          string    `json:"ward_name"`
	MeetDate          string    `json:"meet_date"`
	MeetTime          string    `json:"meet_time,omitempty"`
	MeetType          string    `json:"meet_type"`
	Venue             string    `json:"venue"`
	Objective         string    `json:"objective"`
	Attendees         []string  `json:"attendees"`
	ProjectsDiscussed []string  `json:"projects_discussed"`
	ProjectName       string    `json:"project_name,omitempty"`
	Budget            float64   `json:"budget,omitempty"`
	Timeline          string    `json:"timeline,omitempty"`
	CompletionDate    string    `json:"completion_date,omitempty"`
	ContractorName    string    `json:"contractor_name,omitempty"`
	SourcePDF         string    `json:"source_pdf,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// MeetingIDPattern matches meeting identifiers such as MEET-20240115-A3F
var MeetingIDPattern = regexp.MustCompile(`(?i)\bMEET-\d{8}-[A-Z0-9]+(?:-P\d+)?\b`)

var partSuffix = regexp.MustCompile(`-P\d+$`)

// NewMeetingBaseID builds a base identifier from the meeting date and a tag
func NewMeetingBaseID(date time.Time, tag string) string {
	tag = strings.ToUpper(tag)
	if len(tag) > 3 {
		tag = tag[:3]
	}
	return fmt.Sprintf("MEET-%s-%s", date.Format("20060102"), tag)
}

// MeetingPartID returns the row identifier for the n-th discussed project
func MeetingPartID(base string, n int) string {
	return fmt.Sprintf("%s-P%d", base, n)
}

// MeetingBaseID strips a per-project suffix from a meeting identifier
func MeetingBaseID(id string) string {
	return partSuffix.ReplaceAllString(strings.ToUpper(id), "")
}

// SameMeeting reports whether two identifiers belong to one physical meeting
func SameMeeting(a, b string) bool {
	return MeetingBaseID(a) == MeetingBaseID(b)
}
