package cron

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/services"
	"github.com/sahilchouksey/student-records/utils/auth"
	"gorm.io/gorm"
)

const (
	JobReportStalePending   = "report_stale_institute_requests"
	JobCleanupExpiredTokens = "cleanup_expired_tokens"

	DefaultStaleRequestAge = 72 * time.Hour
	jobTimeout             = 2 * time.Minute
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	requests  *services.InstituteRequestService
	blacklist *auth.BlacklistService
	staleAge  time.Duration
	now       func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, requests *services.InstituteRequestService, staleAge time.Duration) *CronManager {
	if staleAge <= 0 {
		staleAge = DefaultStaleRequestAge
	}

	return &CronManager{
		// seconds precision
		cron:      cron.New(cron.WithSeconds()),
		db:        db,
		requests:  requests,
		blacklist: auth.NewBlacklistService(db),
		staleAge:  staleAge,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()
	log.Infow("cron jobs started", "entries", len(m.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Info("cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// Every hour
	if _, err := m.cron.AddFunc("0 0 * * * *", func() {
		m.runJob(JobReportStalePending, m.ReportStalePendingRequests)
	}); err != nil {
		return err
	}

	// Daily at 3 AM
	if _, err := m.cron.AddFunc("0 0 3 * * *", func() {
		m.runJob(JobCleanupExpiredTokens, m.CleanupExpiredTokens)
	}); err != nil {
		return err
	}

	return nil
}

// runJob records a CronJobLog row around one execution of job
func (m *CronManager) runJob(jobName string, job func(ctx context.Context) (string, error)) *model.CronJobLog {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := m.now()
	entry := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: started,
	}
	if err := m.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Warnw("failed to record cron job start", "job", jobName, "error", err)
	}

	message, err := job(ctx)

	completed := m.now()
	entry.CompletedAt = &completed
	entry.Duration = completed.Sub(started).Milliseconds()
	if err != nil {
		entry.Status = "failed"
		entry.ErrorMsg = err.Error()
		log.Errorw("cron job failed", "job", jobName, "error", err)
	} else {
		entry.Status = "completed"
		entry.Message = message
		log.Infow("cron job completed", "job", jobName, "message", message, "duration_ms", entry.Duration)
	}

	if entry.ID != 0 {
		if err := m.db.WithContext(ctx).Save(&entry).Error; err != nil {
			log.Warnw("failed to record cron job result", "job", jobName, "error", err)
		}
	}

	return &entry
}
