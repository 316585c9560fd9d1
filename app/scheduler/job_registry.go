package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// CampaignRunner is the minimal execution surface the registry needs
type CampaignRunner interface {
	Execute(ctx context.Context, campaignID uint) error
}

// JobRegistry owns the cron timers of recurring campaigns. Each registered
// campaign holds at most one timer; registering again replaces the previous
// one, and cancelling removes it so later ticks never fire.
type JobRegistry struct {
	scheduler gocron.Scheduler
	runner    CampaignRunner
	logger    *log.Logger

	mu   sync.Mutex
	jobs map[uint]uuid.UUID
}

// NewJobRegistry creates the registry and its underlying gocron scheduler
func NewJobRegistry(runner CampaignRunner, logger *log.Logger) (*JobRegistry, error) {
	if logger == nil {
		logger = log.Default()
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create cron scheduler: %w", err)
	}

	return &JobRegistry{
		scheduler: s,
		runner:    runner,
		logger:    logger,
		jobs:      make(map[uint]uuid.UUID),
	}, nil
}

// Start begins firing registered timers
func (r *JobRegistry) Start() {
	r.scheduler.Start()
}

// Shutdown stops all timers and waits for running jobs to finish
func (r *JobRegistry) Shutdown() error {
	if err := r.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown cron scheduler: %w", err)
	}
	return nil
}

// Register arms a recurring timer for a campaign, replacing any existing one
func (r *JobRegistry) Register(campaignID uint, cronExpression string) error {
	if cronExpression == "" {
		return fmt.Errorf("empty cron expression for campaign %d", campaignID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[campaignID]; ok {
		if err := r.scheduler.RemoveJob(existing); err != nil {
			r.logger.Printf("registry: failed to replace timer for campaign %d: %v", campaignID, err)
		}
		delete(r.jobs, campaignID)
	}

	job, err := r.scheduler.NewJob(
		gocron.CronJob(cronExpression, false),
		gocron.NewTask(func() {
			if err := r.runner.Execute(context.Background(), campaignID); err != nil {
				r.logger.Printf("registry: recurring execution of campaign %d failed: %v", campaignID, err)
			}
		}),
		gocron.WithName(fmt.Sprintf("campaign-%d", campaignID)),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule campaign %d: %w", campaignID, err)
	}

	r.jobs[campaignID] = job.ID()
	r.logger.Printf("registry: campaign %d armed with cron %q", campaignID, cronExpression)
	return nil
}

// Cancel stops and removes the timer of a campaign, if one exists
func (r *JobRegistry) Cancel(campaignID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.jobs[campaignID]
	if !ok {
		return
	}
	if err := r.scheduler.RemoveJob(id); err != nil {
		r.logger.Printf("registry: failed to remove timer for campaign %d: %v", campaignID, err)
	}
	delete(r.jobs, campaignID)
	r.logger.Printf("registry: campaign %d timer cancelled", campaignID)
}

// Registered reports whether a campaign currently holds a timer
func (r *JobRegistry) Registered(campaignID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[campaignID]
	return ok
}
