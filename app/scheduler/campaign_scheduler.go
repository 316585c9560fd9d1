// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chatspire/susanoo/repository"
	"github.com/chatspire/susanoo/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CampaignScheduler periodically scans for due scheduled campaigns and
// triggers their drain. Each tick looks at the trailing window
// (now-interval, now]: campaigns missed by more than one interval of
// downtime stay in scheduled status and are not retried, which keeps
// delivery at-most-once with a single scheduler instance.
type CampaignScheduler struct {
	campaignRepo repository.CampaignRepository
	executor     CampaignRunner
	logger       *log.Logger
	interval     time.Duration
}

// NewCampaignScheduler creates the scan loop
func NewCampaignScheduler(
	campaignRepo repository.CampaignRepository,
	executor CampaignRunner,
	interval time.Duration,
) *CampaignScheduler {
	if interval <= 0 {
		interval = time.Minute
	}

	s := &CampaignScheduler{
		campaignRepo: campaignRepo,
		executor:     executor,
		interval:     interval,
	}

	// Scheduler activity goes to stdout and a rotated file so drain history
	// survives restarts.
	if err := s.initSchedulerLogger(); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger writing to both stdout and a rotated file under data/ (or /data)
func (s *CampaignScheduler) initSchedulerLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "scheduler.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		mw := io.MultiWriter(os.Stdout, rotated)
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return os.ErrPermission
}

// Logger exposes the scheduler logger for components that share its output
func (s *CampaignScheduler) Logger() *log.Logger {
	return s.logger
}

// Start launches the scan loop in a background goroutine and returns a stop function
func (s *CampaignScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *CampaignScheduler) runOnce(ctx context.Context) {
	now := utils.UTCNow()
	due, err := s.campaignRepo.DueScheduled(ctx, now.Add(-s.interval), now)
	if err != nil {
		s.logger.Printf("scheduler: due campaign scan failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Printf("scheduler: %d campaigns due", len(due))

	for _, campaign := range due {
		go func(id uint) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Printf("scheduler: panic executing campaign %d: %v", id, r)
				}
			}()
			if err := s.executor.Execute(ctx, id); err != nil {
				s.logger.Printf("scheduler: campaign %d execution failed: %v", id, err)
			}
		}(campaign.ID)
	}
}
