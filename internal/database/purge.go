// MIT License
//
// # Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"wotcache/internal/database/repositories"

	"github.com/pterm/pterm"
	"gorm.io/gorm"
)

// ErrPurgeDisabled is returned by RunNow when no retention is configured.
var ErrPurgeDisabled = errors.New("purge disabled (retention is 0)")

// PurgeConfig controls deletion of records that have not been refreshed for
// a long time. A zero RetentionDays disables the service.
type PurgeConfig struct {
	RetentionDays int
	CheckInterval time.Duration
	// RunAt is the daily run time in HH:MM.
	RunAt     string
	Vacuum    bool
	BatchSize int
}

// PurgeService periodically removes domain_reputation rows whose last
// refresh is older than the retention window. The cache itself never deletes.
type PurgeService struct {
	db     *gorm.DB
	repo   repositories.DomainReputationRepository
	logger *pterm.Logger
	cfg    PurgeConfig
	now    func() time.Time

	stopChan chan struct{}
	doneChan chan struct{}
	running  bool

	mu              sync.Mutex
	lastRunTime     time.Time
	recordsDeleted  int64
	cleanupDuration time.Duration
}

// PurgeStats holds statistics about the last purge run.
type PurgeStats struct {
	Enabled          bool          `json:"enabled"`
	RetentionDays    int           `json:"retention_days"`
	LastRunTime      time.Time     `json:"last_run_time"`
	RecordsDeleted   int64         `json:"records_deleted"`
	CleanupDuration  time.Duration `json:"cleanup_duration"`
	NextScheduledRun time.Time     `json:"next_scheduled_run"`
}

func NewPurgeService(db *gorm.DB, repo repositories.DomainReputationRepository, logger *pterm.Logger, cfg PurgeConfig) *PurgeService {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.RunAt == "" {
		cfg.RunAt = "02:00"
	}
	return &PurgeService{
		db:       db,
		repo:     repo,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (s *PurgeService) Enabled() bool {
	return s.cfg.RetentionDays > 0
}

// Start launches the scheduling loop. It is a no-op when retention is disabled.
func (s *PurgeService) Start() {
	if !s.Enabled() {
		s.logger.Info("Record retention disabled, purge service not started")
		return
	}

	s.running = true
	s.logger.Info("Starting record purge service",
		s.logger.Args(
			"retention_days", s.cfg.RetentionDays,
			"run_at", s.cfg.RunAt,
			"vacuum_enabled", s.cfg.Vacuum,
		))

	go s.scheduledLoop()
}

// Stop ends the scheduling loop and waits for it to return.
func (s *PurgeService) Stop() {
	if !s.running {
		return
	}

	s.logger.Info("Stopping record purge service")
	close(s.stopChan)
	<-s.doneChan
	s.running = false
}

func (s *PurgeService) scheduledLoop() {
	defer close(s.doneChan)

	for {
		targetTime := s.nextRun(s.now())
		waitDuration := targetTime.Sub(s.now())
		s.logger.Debug("Next purge scheduled",
			s.logger.Args("next_run", targetTime.Format("2006-01-02 15:04:05"), "wait_duration", waitDuration.Round(time.Minute)))

		select {
		case <-s.stopChan:
			return
		case <-time.After(min(waitDuration, s.cfg.CheckInterval)):
			if s.now().After(targetTime.Add(-1 * time.Minute)) {
				if _, err := s.run(context.Background()); err != nil {
					s.logger.WithCaller().Error("Scheduled purge failed", s.logger.Args("error", err))
				}
			}
		}
	}
}

// nextRun returns the next occurrence of RunAt at or after base.
func (s *PurgeService) nextRun(base time.Time) time.Time {
	runAt, err := time.Parse("15:04", s.cfg.RunAt)
	if err != nil {
		s.logger.Warn("Invalid purge time format, using 02:00",
			s.logger.Args("configured", s.cfg.RunAt, "error", err))
		runAt, _ = time.Parse("15:04", "02:00")
	}

	target := time.Date(
		base.Year(), base.Month(), base.Day(),
		runAt.Hour(), runAt.Minute(), 0, 0,
		base.Location(),
	)
	if base.After(target) {
		target = target.Add(24 * time.Hour)
	}
	return target
}

// RunNow purges synchronously and returns the number of deleted records.
func (s *PurgeService) RunNow(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, ErrPurgeDisabled
	}
	s.logger.Info("Manual purge triggered")
	return s.run(ctx)
}

func (s *PurgeService) run(ctx context.Context) (int64, error) {
	began := time.Now()
	startTime := s.now()
	cutoff := startTime.AddDate(0, 0, -s.cfg.RetentionDays)

	s.logger.Info("Starting record purge",
		s.logger.Args("retention_days", s.cfg.RetentionDays, "cutoff_date", cutoff.Format("2006-01-02")))

	total, err := s.deleteOldRecords(ctx, cutoff)
	if err != nil {
		return total, err
	}

	duration := time.Since(began)
	s.mu.Lock()
	s.lastRunTime = startTime
	s.recordsDeleted = total
	s.cleanupDuration = duration
	s.mu.Unlock()

	s.logger.Info("Purge completed",
		s.logger.Args(
			"records_deleted", total,
			"duration", duration.Round(time.Millisecond),
			"cutoff_date", cutoff.Format("2006-01-02"),
		))

	if s.cfg.Vacuum && total > 0 {
		s.runVacuum(ctx)
	}
	return total, nil
}

// deleteOldRecords deletes in batches to keep write locks short.
func (s *PurgeService) deleteOldRecords(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		deleted, err := s.repo.DeleteOlderThan(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted < int64(s.cfg.BatchSize) {
			return total, nil
		}

		s.logger.Trace("Deleted batch",
			s.logger.Args("batch_deleted", deleted, "total_deleted", total))

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (s *PurgeService) runVacuum(ctx context.Context) {
	s.logger.Info("Running VACUUM to reclaim disk space")

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	if err := s.db.WithContext(ctx).Exec("VACUUM").Error; err != nil {
		s.logger.WithCaller().Error("Failed to run VACUUM", s.logger.Args("error", err))
		return
	}

	s.logger.Info("VACUUM completed", s.logger.Args("duration", time.Since(startTime).Round(time.Millisecond)))
}

// Stats returns statistics about the last run and the next scheduled one.
func (s *PurgeService) Stats() PurgeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := PurgeStats{
		Enabled:         s.Enabled(),
		RetentionDays:   s.cfg.RetentionDays,
		LastRunTime:     s.lastRunTime,
		RecordsDeleted:  s.recordsDeleted,
		CleanupDuration: s.cleanupDuration,
	}
	if stats.Enabled {
		stats.NextScheduledRun = s.nextRun(s.now())
	}
	return stats
}
