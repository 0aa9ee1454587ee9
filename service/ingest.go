package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/pkg/logger"
	"github.com/jansaakshi/backend/pkg/metrics"
	"github.com/jansaakshi/backend/status"
)

// ErrUnknownTask is returned for callbacks that match no ingestion job
var ErrUnknownTask = errors.New("no ingestion job for OCR task")

// RecordWriter is the write side of the record store used by ingestion
type RecordWriter interface {
	InsertMeeting(ctx context.Context, m *model.Meeting) error
	UpsertProject(ctx context.Context, p *model.Project) (int64, error)
}

// Upload is a minutes document received from an administrator
type Upload struct {
	City        string
	CityID      int64
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IngestorOptions configure an Ingestor
type IngestorOptions struct {
	// UseCallback leaves OCR completion to HandleCallback instead of polling
	UseCallback bool
	Metrics     *metrics.Metrics
}

// Ingestor turns uploaded minutes into meeting and project records:
// upload, OCR, extraction, then storage. Everything after the upload runs
// in the background.
type Ingestor struct {
	storage    ObjectStorage
	ocr        OCRClient
	classifier DocumentClassifier
	records    RecordWriter
	jobs       *JobStore
	opts       IngestorOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewIngestor(storage ObjectStorage, ocr OCRClient, classifier DocumentClassifier,
	records RecordWriter, jobs *JobStore, opts IngestorOptions) *Ingestor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Ingestor{
		storage:    storage,
		ocr:        ocr,
		classifier: classifier,
		records:    records,
		jobs:       jobs,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}
}

// Jobs returns the job table
func (i *Ingestor) Jobs() *JobStore {
	return i.jobs
}

// Submit stores the document and starts processing it. The returned job is
// pending; poll the job table for progress.
func (i *Ingestor) Submit(ctx context.Context, up Upload) (*model.IngestJob, error) {
	jobID := uuid.NewString()
	objectName := ObjectName(up.City, jobID, up.Filename)

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	if err := i.storage.UploadFile(ctx, objectName, up.Body, up.Size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	job := &model.IngestJob{
		ID:         jobID,
		Filename:   up.Filename,
		City:       up.City,
		CityID:     up.CityID,
		ObjectName: objectName,
		Status:     model.StatusPending,
		CreatedAt:  i.now(),
	}
	i.jobs.Save(job)
	logger.Info(ctx, "ingest job created", "job_id", jobID, "object", objectName)

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		i.process(jobID)
	}()

	return i.jobs.Get(jobID), nil
}

func (i *Ingestor) process(jobID string) {
	ctx := logger.With(i.ctx, logger.JobIDKey, jobID)
	job := i.jobs.Get(jobID)
	if job == nil {
		return
	}
	i.jobs.UpdateStatus(jobID, model.StatusProcessing, "")

	pdfURL, err := i.storage.GetPresignedURL(ctx, job.ObjectName)
	if err != nil {
		i.fail(ctx, jobID, err)
		return
	}

	taskID, err := i.ocr.CreateTask(ctx, pdfURL, jobID)
	if err != nil {
		i.fail(ctx, jobID, err)
		return
	}
	i.jobs.Update(jobID, func(j *model.IngestJob) { j.OCRTaskID = taskID })
	logger.Info(ctx, "ocr task created", "task_id", taskID)

	if i.opts.UseCallback {
		return
	}

	data, err := i.ocr.WaitForResult(ctx, taskID)
	if err != nil {
		i.fail(ctx, jobID, err)
		return
	}
	if !i.jobs.Claim(jobID) {
		return
	}
	i.complete(ctx, jobID, data.FullZipURL)
}

// HandleCallback resolves the job waiting on the task described by data
func (i *Ingestor) HandleCallback(ctx context.Context, data *OCRTaskData) error {
	job := i.jobs.FindByOCRTask(data.TaskID)
	if job == nil {
		return ErrUnknownTask
	}
	if job.Finished() {
		return nil
	}
	jobCtx := logger.With(i.ctx, logger.JobIDKey, job.ID)

	switch data.State {
	case OCRStateFailed, OCRStateDone:
		if !i.jobs.Claim(job.ID) {
			logger.Debug(ctx, "duplicate ocr callback ignored", "task_id", data.TaskID, "state", data.State)
			return nil
		}
	}

	switch data.State {
	case OCRStateFailed:
		i.fail(jobCtx, job.ID, fmt.Errorf("ocr task %s failed: %s", data.TaskID, data.ErrorMsg))
	case OCRStateDone:
		if data.FullZipURL == "" {
			i.fail(jobCtx, job.ID, fmt.Errorf("ocr task %s finished without a result URL", data.TaskID))
			return nil
		}
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			i.complete(jobCtx, job.ID, data.FullZipURL)
		}()
	default:
		logger.Debug(ctx, "ocr callback progress", "task_id", data.TaskID, "state", data.State)
	}
	return nil
}

func (i *Ingestor) complete(ctx context.Context, jobID, zipURL string) {
	text, err := i.ocr.FetchMarkdown(ctx, zipURL)
	if err != nil {
		i.fail(ctx, jobID, err)
		return
	}

	ex, err := i.classifier.Classify(ctx, text)
	if err != nil {
		i.fail(ctx, jobID, err)
		return
	}

	job := i.jobs.Get(jobID)
	if job == nil {
		return
	}
	meetingID, inserted, err := i.storeExtraction(ctx, job, ex)
	if err != nil {
		i.fail(ctx, jobID, err)
		return
	}

	i.jobs.Update(jobID, func(j *model.IngestJob) {
		j.Status = model.StatusCompleted
		j.MeetingID = meetingID
		j.ProjectsFound = len(ex.Projects)
		j.ProjectsInserted = inserted
		j.ErrorMsg = ""
	})
	if m := i.opts.Metrics; m != nil {
		m.IngestJobs.WithLabelValues(model.StatusCompleted).Inc()
		m.IngestedProjects.Add(float64(inserted))
	}
	logger.Info(ctx, "ingest job completed", "meeting_id", meetingID,
		"projects_found", len(ex.Projects), "projects_inserted", inserted)
}

// storeExtraction writes one meeting row per discussed project (or a single
// row when none was discussed) and the projects themselves
func (i *Ingestor) storeExtraction(ctx context.Context, job *model.IngestJob, ex *MinutesExtraction) (string, int, error) {
	today := i.now()
	meetDate := today
	if d, err := status.ParseDate(strings.TrimSpace(ex.Meeting.MeetDate)); err == nil {
		meetDate = d
	}
	base := model.NewMeetingBaseID(meetDate, jobTag(job.ID))

	names := make([]string, 0, len(ex.Projects))
	for _, p := range ex.Projects {
		names = append(names, p.ProjectName)
	}

	meeting := model.Meeting{
		CityID:            job.CityID,
		WardNo:            ex.Meeting.WardNo,
		WardName:          ex.Meeting.WardName,
		MeetDate:          meetDate.Format(model.DateLayout),
		MeetTime:          ex.Meeting.MeetTime,
		MeetType:          ex.Meeting.MeetType,
		Venue:             ex.Meeting.Venue,
		Objective:         ex.Meeting.Objective,
		Attendees:         ex.Meeting.Attendees,
		ProjectsDiscussed: names,
		SourcePDF:         job.Filename,
	}

	if len(ex.Projects) == 0 {
		meeting.ID = base
		if err := i.records.InsertMeeting(ctx, &meeting); err != nil {
			return "", 0, err
		}
		return base, 0, nil
	}

	inserted := 0
	for n, ep := range ex.Projects {
		project := buildProject(job, ex.Meeting, ep, today)

		row := meeting
		row.ID = model.MeetingPartID(base, n+1)
		row.ProjectName = project.ProjectName
		row.Budget = project.Budget
		row.Timeline = ep.Timeline
		row.CompletionDate = project.ExpectedCompletion
		row.ContractorName = project.ContractorName
		if row.WardNo == "" {
			row.WardNo, row.WardName = project.WardNo, project.WardName
		}
		if err := i.records.InsertMeeting(ctx, &row); err != nil {
			return "", inserted, err
		}

		if _, err := i.records.UpsertProject(ctx, &project); err != nil {
			return "", inserted, err
		}
		inserted++
	}
	return base, inserted, nil
}

func buildProject(job *model.IngestJob, m ExtractedMeeting, ep ExtractedProject, today time.Time) model.Project {
	p := model.Project{
		CityID:             job.CityID,
		WardNo:             firstNonEmpty(ep.WardNo, m.WardNo),
		WardName:           firstNonEmpty(ep.WardName, m.WardName),
		ProjectName:        ep.ProjectName,
		Summary:            strings.TrimSpace(ep.Summary),
		LocationDetails:    ep.LocationDetails,
		ProjectType:        model.NormalizeProjectType(ep.ProjectType),
		Budget:             float64(ep.Budget),
		CorporatorName:     ep.CorporatorName,
		ContractorName:     ep.ContractorName,
		ApprovalDate:       ep.ApprovalDate,
		StartDate:          ep.StartDate,
		ExpectedCompletion: ep.ExpectedCompletion,
		ActualCompletion:   ep.ActualCompletion,
		SourcePDF:          job.Filename,
	}
	if p.ApprovalDate == "" && strings.TrimSpace(m.MeetDate) != "" {
		p.ApprovalDate = m.MeetDate
	}

	res := status.ForProject(&p, today)
	p.Status, p.DelayDays, p.StatusNote = res.Status, res.DelayDays, res.Note
	// with no usable dates the extracted status is kept when it is valid
	if res.Status == model.ProjectUnknown && validExtractedStatus(ep.Status) {
		p.Status = strings.ToLower(ep.Status)
	}

	if p.Summary == "" {
		p.Summary = fmt.Sprintf("%s in %s with budget of ₹%.2f lakhs.",
			p.ProjectName, valueOr(p.WardName, "ward "+valueOr(p.WardNo, "unknown")), p.BudgetLakhs())
	}
	return p
}

func validExtractedStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case model.ProjectApproved, model.ProjectOngoing, model.ProjectCompleted,
		model.ProjectDelayed, model.ProjectPending:
		return true
	}
	return false
}

func (i *Ingestor) fail(ctx context.Context, jobID string, err error) {
	logger.Error(ctx, "ingest job failed", "error", err)
	i.jobs.UpdateStatus(jobID, model.StatusFailed, err.Error())
	if m := i.opts.Metrics; m != nil {
		m.IngestJobs.WithLabelValues(model.StatusFailed).Inc()
	}
}

// Wait blocks until background work has finished
func (i *Ingestor) Wait() {
	i.wg.Wait()
}

// Close cancels background work and waits for it
func (i *Ingestor) Close() {
	i.cancel()
	i.wg.Wait()
}

// jobTag is the meeting id tag derived from a job id: its first three hex
// characters
func jobTag(jobID string) string {
	tag := strings.ReplaceAll(jobID, "-", "")
	if len(tag) > 3 {
		tag = tag[:3]
	}
	return strings.ToUpper(tag)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
