package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jansaakshi/backend/model"
)

// JobStore keeps ingestion jobs in memory. When maxJobs is exceeded the
// oldest jobs are dropped.
type JobStore struct {
	jobs    map[string]*model.IngestJob
	mu      sync.RWMutex
	maxJobs int // 0 = unlimited
}

// NewJobStore creates a job table holding at most maxJobs entries
func NewJobStore(maxJobs int) *JobStore {
	if maxJobs < 0 {
		maxJobs = 0
	}
	slog.Info("ingest job store initialized", "max_jobs", maxJobs)
	return &JobStore{
		jobs:    make(map[string]*model.IngestJob),
		maxJobs: maxJobs,
	}
}

func (s *JobStore) Save(job *model.IngestJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.UpdatedAt = time.Now()
	cp := *job
	s.jobs[job.ID] = &cp

	s.cleanupIfNeeded()
}

// Get returns a snapshot of the job, or nil
func (s *JobStore) Get(id string) *model.IngestJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// FindByOCRTask returns the job waiting on an OCR task, or nil
func (s *JobStore) FindByOCRTask(taskID string) *model.IngestJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.OCRTaskID == taskID {
			cp := *j
			return &cp
		}
	}
	return nil
}

// List returns the jobs of a city, newest first. An empty city lists all.
func (s *JobStore) List(city string) []*model.IngestJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*model.IngestJob{}
	for _, j := range s.jobs {
		if city == "" || j.City == city {
			cp := *j
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})
	return result
}

// Update applies fn to the stored job. It reports false when the job is gone.
func (s *JobStore) Update(id string, fn func(*model.IngestJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	j.UpdatedAt = time.Now()
	return true
}

// Claim marks the job as finalizing. It reports false when the job is gone,
// finished or already claimed, so one OCR result is processed only once.
func (s *JobStore) Claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Finished() || j.Finalizing {
		return false
	}
	j.Finalizing = true
	j.UpdatedAt = time.Now()
	return true
}

func (s *JobStore) UpdateStatus(id, status, errMsg string) {
	s.Update(id, func(j *model.IngestJob) {
		j.Status = status
		j.ErrorMsg = errMsg
	})
}

// cleanupIfNeeded removes the oldest jobs. Must be called with lock held.
func (s *JobStore) cleanupIfNeeded() {
	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return
	}

	jobs := make([]*model.IngestJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})

	for _, j := range jobs[:len(jobs)-s.maxJobs] {
		slog.Info("dropping old ingest job", "job_id", j.ID, "created_at", j.CreatedAt)
		delete(s.jobs, j.ID)
	}
}

func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
