package web

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shopscan/shopscan/pkg/models"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job tracks one asynchronous scrape request submitted over the API.
type Job struct {
	ID         string     `json:"id"`
	StartURL   string     `json:"start_url"`
	Pattern    string     `json:"pattern,omitempty"`
	MaxPages   int        `json:"max_pages"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	Products   int        `json:"products"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CrawlFunc runs one category crawl and returns the scraped products.
type CrawlFunc func(ctx context.Context, startURL, pattern string, maxPages int) ([]*models.Product, error)

// JobManager runs scrape jobs in the background and keeps their state in
// memory. Jobs do not survive a restart; persistent results live in the
// product store.
type JobManager struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	crawl CrawlFunc
}

func NewJobManager(crawl CrawlFunc) *JobManager {
	return &JobManager{
		jobs:  make(map[string]*Job),
		crawl: crawl,
	}
}

// Submit registers a job and starts it in the background.
func (m *JobManager) Submit(ctx context.Context, startURL, pattern string, maxPages int) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		StartURL:  startURL,
		Pattern:   pattern,
		MaxPages:  maxPages,
		Status:    JobPending,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.run(ctx, job.ID)
	return job
}

func (m *JobManager) run(ctx context.Context, id string) {
	m.setStatus(id, JobRunning, "", 0)

	m.mu.RLock()
	job := m.jobs[id]
	m.mu.RUnlock()

	log.Info().Str("job", id).Str("start", job.StartURL).Msg("job started")
	products, err := m.crawl(ctx, job.StartURL, job.Pattern, job.MaxPages)
	if err != nil {
		log.Error().Str("job", id).Err(err).Msg("job failed")
		m.setStatus(id, JobFailed, err.Error(), len(products))
		return
	}
	log.Info().Str("job", id).Int("products", len(products)).Msg("job completed")
	m.setStatus(id, JobCompleted, "", len(products))
}

func (m *JobManager) setStatus(id string, status JobStatus, errMsg string, products int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Error = errMsg
	job.Products = products
	if status == JobCompleted || status == JobFailed {
		now := time.Now()
		job.FinishedAt = &now
	}
}

// Get returns a copy of the job, so callers never see mid-update state.
func (m *JobManager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns copies of all known jobs, newest first.
func (m *JobManager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
