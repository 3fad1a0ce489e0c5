package databricks

import (
	"context"
	"fmt"

	"github.com/causeway-mcp/causeway/internal/core/port"
	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/jobs"
)

// Jobs lists, inspects, and triggers workspace jobs.
type Jobs struct {
	w *databricks.WorkspaceClient
}

func NewJobs(w *databricks.WorkspaceClient) *Jobs {
	return &Jobs{w: w}
}

func (j *Jobs) ListJobs(ctx context.Context, limit, offset int, expandTasks bool) ([]port.Job, error) {
	all, err := j.w.Jobs.ListAll(ctx, jobs.ListJobsRequest{
		ExpandTasks: expandTasks,
	})
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	// The list API pages by token, so limit and offset are applied here
	// rather than pushed down per page.
	if offset > 0 {
		if offset >= len(all) {
			return []port.Job{}, nil
		}
		all = all[offset:]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]port.Job, 0, len(all))
	for _, bj := range all {
		job := port.Job{
			ID:              bj.JobId,
			CreatedTime:     bj.CreatedTime,
			CreatorUserName: bj.CreatorUserName,
		}
		if bj.Settings != nil {
			job.Name = bj.Settings.Name
		}
		out = append(out, job)
	}
	return out, nil
}

func (j *Jobs) GetJob(ctx context.Context, jobID int64) (*port.Job, error) {
	jb, err := j.w.Jobs.Get(ctx, jobs.GetJobRequest{JobId: jobID})
	if err != nil {
		return nil, fmt.Errorf("getting job %d: %w", jobID, err)
	}

	job := &port.Job{
		ID:              jb.JobId,
		CreatedTime:     jb.CreatedTime,
		CreatorUserName: jb.CreatorUserName,
	}
	if jb.Settings != nil {
		job.Name = jb.Settings.Name
	}
	return job, nil
}

func (j *Jobs) RunJob(ctx context.Context, jobID int64, params port.RunParams) (int64, error) {
	wait, err := j.w.Jobs.RunNow(ctx, jobs.RunNow{
		JobId:             jobID,
		JarParams:         params.JarParams,
		NotebookParams:    params.NotebookParams,
		PythonParams:      params.PythonParams,
		SparkSubmitParams: params.SparkSubmitParams,
	})
	if err != nil {
		return 0, fmt.Errorf("running job %d: %w", jobID, err)
	}
	return wait.Response.RunId, nil
}
