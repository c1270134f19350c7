package jobs

import "context"

// Job is a background task run by the Scheduler.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Schedule returns a cron spec such as "@every 1m". An empty schedule
	// registers the job for on-demand runs only.
	Schedule() string

	Execute(ctx context.Context) error
}
