package port

import "context"

// Job summarizes a workspace job.
type Job struct {
	ID              int64  `json:"job_id"`
	Name            string `json:"name,omitempty"`
	CreatedTime     int64  `json:"created_time,omitempty"`
	CreatorUserName string `json:"creator_user_name,omitempty"`
}

// RunParams carries the optional per-run parameter sets accepted by run-now.
type RunParams struct {
	JarParams         []string          `json:"jar_params,omitempty"`
	NotebookParams    map[string]string `json:"notebook_params,omitempty"`
	PythonParams      []string          `json:"python_params,omitempty"`
	SparkSubmitParams []string          `json:"spark_submit_params,omitempty"`
}

// Jobs lists, inspects, and triggers workspace jobs.
type Jobs interface {
	// ListJobs returns up to limit jobs after skipping offset of them.
	// A non-positive limit means no cap.
	ListJobs(ctx context.Context, limit, offset int, expandTasks bool) ([]Job, error)
	GetJob(ctx context.Context, jobID int64) (*Job, error)
	// RunJob triggers the job now and returns the run id.
	RunJob(ctx context.Context, jobID int64, params RunParams) (int64, error)
}
