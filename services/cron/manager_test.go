package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/student-records/model"
	"github.com/sahilchouksey/student-records/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.InstituteRequest{},
		&model.AdminAuditLog{},
		&model.JWTTokenBlacklist{},
		&model.CronJobLog{},
	))
	return db
}

func TestCronManager_ReportStalePendingRequests(t *testing.T) {
	db := setupTestDB(t)
	requests := services.NewInstituteRequestService(db, services.InstituteRequestServiceConfig{})
	m := NewCronManager(db, requests, 0)
	assert.Equal(t, DefaultStaleRequestAge, m.staleAge)

	old := model.InstituteRequest{AISHECode: "U-OLD", UniversityName: "Old University", CreatedAt: time.Now().Add(-100 * time.Hour)}
	fresh := model.InstituteRequest{AISHECode: "U-NEW", UniversityName: "New University"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)

	entry := m.runJob(JobReportStalePending, m.ReportStalePendingRequests)
	assert.Equal(t, "completed", entry.Status)
	assert.Contains(t, entry.Message, "1 pending requests")
	require.NotNil(t, entry.CompletedAt)

	var stored model.CronJobLog
	require.NoError(t, db.First(&stored, entry.ID).Error)
	assert.Equal(t, "completed", stored.Status)
	assert.Equal(t, JobReportStalePending, stored.JobName)
}

func TestCronManager_CleanupExpiredTokens(t *testing.T) {
	db := setupTestDB(t)
	m := NewCronManager(db, services.NewInstituteRequestService(db, services.InstituteRequestServiceConfig{}), time.Hour)

	require.NoError(t, m.blacklist.RevokeToken(context.Background(), "expired", 1, time.Now().Add(-time.Minute), "logout"))
	require.NoError(t, m.blacklist.RevokeToken(context.Background(), "active", 1, time.Now().Add(time.Hour), "logout"))

	entry := m.runJob(JobCleanupExpiredTokens, m.CleanupExpiredTokens)
	assert.Equal(t, "completed", entry.Status)
	assert.Equal(t, "removed 1 expired blacklist entries", entry.Message)

	var remaining int64
	require.NoError(t, db.Model(&model.JWTTokenBlacklist{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestCronManager_RunJobRecordsFailure(t *testing.T) {
	db := setupTestDB(t)
	m := NewCronManager(db, nil, time.Hour)

	entry := m.runJob("failing_job", func(context.Context) (string, error) {
		return "", errors.New("boom")
	})
	assert.Equal(t, "failed", entry.Status)
	assert.Equal(t, "boom", entry.ErrorMsg)

	var stored model.CronJobLog
	require.NoError(t, db.First(&stored, entry.ID).Error)
	assert.Equal(t, "failed", stored.Status)
}

func TestCronManager_StartRegistersJobs(t *testing.T) {
	db := setupTestDB(t)
	m := NewCronManager(db, nil, time.Hour)

	require.NoError(t, m.Start())
	assert.Len(t, m.cron.Entries(), 2)
	m.Stop()
}
