package service

import (
	"context"

	"github.com/causeway-mcp/causeway/internal/core/port"
)

// JobsService wraps the Jobs port for job tools.
type JobsService struct {
	jobs port.Jobs
}

func NewJobsService(jobs port.Jobs) *JobsService {
	return &JobsService{jobs: jobs}
}

func (s *JobsService) ListJobs(ctx context.Context, limit, offset int, expandTasks bool) ([]port.Job, error) {
	return s.jobs.ListJobs(ctx, limit, offset, expandTasks)
}

func (s *JobsService) GetJob(ctx context.Context, jobID int64) (*port.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

func (s *JobsService) RunJob(ctx context.Context, jobID int64, params port.RunParams) (int64, error) {
	return s.jobs.RunJob(ctx, jobID, params)
}
