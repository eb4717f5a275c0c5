package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/studyhub-api/model"
	"github.com/sahilchouksey/studyhub-api/services"
	"github.com/sahilchouksey/studyhub-api/utils/auth"
)

// Job names as stored in cron_job_logs
const (
	JobOrphanScan           = "orphan_scan"
	JobPurgeTokens          = "purge_expired_tokens"
	JobCleanupNotifications = "cleanup_notifications"
)

const (
	notificationRetention = 30 * 24 * time.Hour
	cronLogRetention      = 90 * 24 * time.Hour
)

// ScanOrphans removes document rows whose file is missing. Stray files are
// only reported; removing them is left to the CLI.
func (m *CronManager) ScanOrphans(ctx context.Context) (string, map[string]interface{}, error) {
	if m.maintenance == nil {
		return "maintenance service not configured", nil, nil
	}
	report, err := m.maintenance.ScanOrphans(ctx, services.ScanOptions{})
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Checked %d documents, removed %d orphaned records", report.Checked, report.RemovedRecords),
		map[string]interface{}{
			"checked":         report.Checked,
			"removed_records": report.RemovedRecords,
			"stray_files":     len(report.StrayFiles),
		}, nil
}

// PurgeExpiredTokens clears expired blacklist entries and old job logs
func (m *CronManager) PurgeExpiredTokens(ctx context.Context) (string, map[string]interface{}, error) {
	tokens, err := auth.NewBlacklistService(m.db).CleanupExpiredTokens(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to clean token blacklist: %w", err)
	}

	result := m.db.WithContext(ctx).Where("created_at < ?", time.Now().Add(-cronLogRetention)).Delete(&model.CronJobLog{})
	if result.Error != nil {
		return "", nil, fmt.Errorf("failed to clean cron logs: %w", result.Error)
	}

	return fmt.Sprintf("Cleaned %d expired tokens and %d old job logs", tokens, result.RowsAffected),
		map[string]interface{}{"tokens": tokens, "cron_logs": result.RowsAffected}, nil
}

// CleanupNotifications deletes read notifications older than 30 days
func (m *CronManager) CleanupNotifications(ctx context.Context) (string, map[string]interface{}, error) {
	n, err := m.notifications.CleanupOldNotifications(ctx, notificationRetention)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Cleaned %d read notifications", n), map[string]interface{}{"notifications": n}, nil
}
