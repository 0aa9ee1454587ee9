package model

import (
	"testing"
	"time"
)

func TestIngestJobStatusConstants(t *testing.T) {
	statuses := []string{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}
	expected := []string{"pending", "processing", "completed", "failed"}

	for i, status := range statuses {
		if status != expected[i] {
			t.Errorf("Expected '%s', got '%s'", expected[i], status)
		}
	}
}

func TestIngestJobFinished(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		job := &IngestJob{Status: tt.status}
		if got := job.Finished(); got != tt.want {
			t.Errorf("Finished() for %s: expected %v, got %v", tt.status, tt.want, got)
		}
	}
}

func TestMeetingIdentifiers(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	base := NewMeetingBaseID(date, "a3f9c2")
	if base != "MEET-20240115-A3F" {
		t.Fatalf("Expected MEET-20240115-A3F, got %s", base)
	}

	part := MeetingPartID(base, 2)
	if part != "MEET-20240115-A3F-P2" {
		t.Errorf("Expected part id MEET-20240115-A3F-P2, got %s", part)
	}
	if MeetingBaseID(part) != base {
		t.Errorf("Expected base %s, got %s", base, MeetingBaseID(part))
	}
	if !SameMeeting(part, MeetingPartID(base, 7)) {
		t.Error("Expected parts of one base to be the same meeting")
	}
	if SameMeeting(part, "MEET-20240116-A3F-P2") {
		t.Error("Expected different dates to be different meetings")
	}
	if !MeetingIDPattern.MatchString("what happened in meet-20240115-a3f?") {
		t.Error("Expected pattern to match lower-case identifier")
	}
}

func TestFilterSetEmptiness(t *testing.T) {
	var f FilterSet
	if !f.IsEmpty() || f.HasStructured() {
		t.Error("Expected zero FilterSet to be empty")
	}

	f.Keywords = []string{"freeway"}
	if f.IsEmpty() {
		t.Error("Expected FilterSet with keywords to be non-empty")
	}
	if f.HasStructured() {
		t.Error("Keywords alone are not a structured filter")
	}

	f.Status = ProjectDelayed
	if !f.HasStructured() {
		t.Error("Expected status to count as a structured filter")
	}
}

func TestOverridesApply(t *testing.T) {
	f := FilterSet{WardNo: "3", Status: ProjectOngoing}
	Overrides{WardNo: "37", ContractorName: "ABC Infra"}.Apply(&f)

	if f.WardNo != "37" {
		t.Errorf("Expected ward override 37, got %s", f.WardNo)
	}
	if f.Status != ProjectOngoing {
		t.Errorf("Expected inferred status to survive, got %s", f.Status)
	}
	if f.ContractorName != "ABC Infra" {
		t.Errorf("Expected contractor override, got %s", f.ContractorName)
	}
}

func TestNormalizeProjectType(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{TypeDrainage, TypeDrainage},
		{"Street Lighting", TypeStreetLighting},
		{"water-supply", TypeWaterSupply},
		{"storm water drain", TypeDrainage},
		{"Road widening", TypeRoads},
		{"community garden", TypeParks},
		{"bridges", TypeOther},
		{"", TypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeProjectType(tt.in); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
