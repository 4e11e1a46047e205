package cron

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

// ReportStalePendingRequests logs how many requests have waited longer than the stale age
func (m *CronManager) ReportStalePendingRequests(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-m.staleAge)

	count, err := m.requests.CountStalePending(ctx, cutoff)
	if err != nil {
		return "", err
	}

	if count > 0 {
		log.Warnw("institute requests awaiting review", "count", count, "older_than", m.staleAge.String())
	}
	return fmt.Sprintf("%d pending requests older than %s", count, m.staleAge), nil
}

// CleanupExpiredTokens removes blacklist entries for tokens that have expired anyway
func (m *CronManager) CleanupExpiredTokens(ctx context.Context) (string, error) {
	removed, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d expired blacklist entries", removed), nil
}
