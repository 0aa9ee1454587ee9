package model

import (
	"time"
)

// IngestJob tracks one uploaded minutes document through OCR and extraction
type IngestJob struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	City             string    `json:"city"`
	CityID           int64     `json:"city_id"`
	ObjectName       string    `json:"object_name"`
	Status           string    `json:"status"` // pending, processing, completed, failed
	OCRTaskID        string    `json:"ocr_task_id,omitempty"`
	MeetingID        string    `json:"meeting_id,omitempty"`
	ProjectsFound    int       `json:"projects_found"`
	ProjectsInserted int       `json:"projects_inserted"`
	ErrorMsg         string    `json:"error_msg,omitempty"`
	// Finalizing is set once a terminal OCR result has been claimed
	Finalizing       bool      `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IngestJob status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Finished reports whether the job reached a terminal state
func (j *IngestJob) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
