package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/cache"
	"github.com/sahilchouksey/studyhub-api/utils/logger"
	"github.com/sahilchouksey/studyhub-api/utils/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const jobTimeout = 10 * time.Minute

// JobFunc does the work of one job and returns a summary for cron_job_logs
type JobFunc func(ctx context.Context) (string, map[string]interface{}, error)

type job struct {
	name     string
	schedule string
	run      JobFunc
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	maintenance   *services.MaintenanceService
	notifications *services.NotificationService
	lock          *cache.RedisCache
	jobs          map[string]JobFunc
	log           zerolog.Logger
}

// NewCronManager creates a new cron manager. lock may be nil; with Redis
// available each run takes a lock so only one instance executes a job.
func NewCronManager(db *gorm.DB, maintenance *services.MaintenanceService, lock *cache.RedisCache) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	m := &CronManager{
		cron:          c,
		db:            db,
		maintenance:   maintenance,
		notifications: services.NewNotificationService(db),
		lock:          lock,
		jobs:          make(map[string]JobFunc),
		log:           logger.WithComponent("cron"),
	}
	for _, j := range m.schedule() {
		m.jobs[j.name] = j.run
	}
	return m
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info().Msg("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info().Int("jobs", len(m.jobs)).Msg("cron jobs started")
	return nil
}

// Stop stops all cron jobs and waits for running ones
func (m *CronManager) Stop() {
	m.log.Info().Msg("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info().Msg("cron jobs stopped")
}

func (m *CronManager) schedule() []job {
	return []job{
		// hourly at :15
		{name: JobOrphanScan, schedule: "0 15 * * * *", run: m.ScanOrphans},
		// daily at 03:00
		{name: JobPurgeTokens, schedule: "0 0 3 * * *", run: m.PurgeExpiredTokens},
		// Sundays at 04:00
		{name: JobCleanupNotifications, schedule: "0 0 4 * * 0", run: m.CleanupNotifications},
	}
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	for _, j := range m.schedule() {
		j := j
		if _, err := m.cron.AddFunc(j.schedule, func() { m.Run(j.name) }); err != nil {
			return fmt.Errorf("failed to register job %s: %w", j.name, err)
		}
		m.log.Debug().Str("job", j.name).Str("schedule", j.schedule).Msg("registered job")
	}
	return nil
}

// Run executes a job by name, recording it in cron_job_logs. It returns the
// log row, or nil when the job was skipped because another instance holds
// the lock.
func (m *CronManager) Run(name string) *model.CronJobLog {
	fn, ok := m.jobs[name]
	if !ok {
		m.log.Error().Str("job", name).Msg("unknown job")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if !m.acquire(ctx, name) {
		m.log.Debug().Str("job", name).Msg("job locked by another instance, skipping")
		return nil
	}

	entry := m.logJobStart(ctx, name)
	message, metadata, err := fn(ctx)
	if err != nil {
		m.logJobError(ctx, entry, err)
	} else {
		m.logJobComplete(ctx, entry, message, metadata)
	}
	return entry
}

func (m *CronManager) acquire(ctx context.Context, name string) bool {
	if m.lock == nil {
		return true
	}
	ok, err := m.lock.SetNX(ctx, "cron:lock:"+name, time.Now().Unix(), jobTimeout)
	if err != nil {
		m.log.Warn().Err(err).Str("job", name).Msg("failed to take job lock, running anyway")
		return true
	}
	return ok
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(ctx context.Context, jobName string) *model.CronJobLog {
	m.log.Info().Str("job", jobName).Msg("starting job")

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusRunning,
		StartedAt: time.Now(),
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.WithContext(ctx).Create(entry).Error; err != nil {
		m.log.Error().Err(err).Str("job", jobName).Msg("failed to record job start")
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(ctx context.Context, entry *model.CronJobLog, message string, metadata map[string]interface{}) {
	m.log.Info().Str("job", entry.JobName).Str("result", message).Msg("completed job")

	now := time.Now()
	entry.Status = model.CronStatusCompleted
	entry.CompletedAt = &now
	entry.Duration = now.Sub(entry.StartedAt).Milliseconds()
	entry.Message = message
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	m.save(ctx, entry)
	observe(entry)
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(ctx context.Context, entry *model.CronJobLog, err error) {
	m.log.Error().Err(err).Str("job", entry.JobName).Msg("job failed")

	now := time.Now()
	entry.Status = model.CronStatusFailed
	entry.CompletedAt = &now
	entry.Duration = now.Sub(entry.StartedAt).Milliseconds()
	entry.ErrorMsg = err.Error()
	m.save(ctx, entry)
	observe(entry)
}

func observe(entry *model.CronJobLog) {
	metrics.CronJobRuns.WithLabelValues(entry.JobName, entry.Status).Inc()
	metrics.CronJobDuration.WithLabelValues(entry.JobName).Observe(float64(entry.Duration) / 1000)
}

func (m *CronManager) save(ctx context.Context, entry *model.CronJobLog) {
	if entry.ID == 0 {
		return
	}
	if err := m.db.WithContext(ctx).Save(entry).Error; err != nil {
		m.log.Error().Err(err).Str("job", entry.JobName).Msg("failed to record job result")
	}
}
