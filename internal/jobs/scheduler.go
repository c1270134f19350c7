package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	log  *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
	}
}

// Register adds job and schedules it when it has a schedule.
func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		s.log.Info("registered on-demand job", zap.String("job", job.Name()))
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(context.Background(), job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name(), err)
	}
	s.log.Info("scheduled job", zap.String("job", job.Name()), zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	if err := job.Execute(ctx); err != nil {
		s.log.Warn("job failed", zap.String("job", job.Name()), zap.Error(err))
		return
	}
	s.log.Debug("job completed", zap.String("job", job.Name()))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("job scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.log.Info("job scheduler stopped")
}

// RunByName executes a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return job.Execute(ctx)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

// Registered lists the names of all registered jobs.
func (s *Scheduler) Registered() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
