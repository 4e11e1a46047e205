package services

import (
	"context"
	"sync"
	"testing"

	"github.com/sahilchouksey/student-records/infra/queue"
	"github.com/sahilchouksey/student-records/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database with the institute request tables.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to SQLite test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.InstituteRequest{}, &model.AdminAuditLog{}))
	return db
}

func validPayload(aisheCode string) *model.SubmitInstituteRequest {
	return &model.SubmitInstituteRequest{
		AISHECode:      aisheCode,
		InstituteType:  "University",
		State:          "Madhya Pradesh",
		District:       "Bhopal",
		UniversityName: "Test University",
		Address:        "1 Campus Road, Bhopal",
		Email:          "admin@test.edu",
		HeadOfInstitute: model.ContactPersonPayload{
			Name:    "Dr. Head",
			Email:   "head@test.edu",
			Contact: "9876543210",
		},
		ModalOfficer: model.ContactPersonPayload{
			Name:             "Nodal Officer",
			Email:            "nodal@test.edu",
			Contact:          "9876543211",
			AlternateContact: "+91 7554 123456",
		},
		NAACGrading: true,
		NAACGrade:   "A+",
	}
}

var (
	adminPrincipal   = &Principal{UserID: 1, Email: "admin@test.edu", Role: model.RoleAdmin}
	studentPrincipal = &Principal{UserID: 2, Email: "student@test.edu", Role: model.RoleStudent}
)

// recordingPublisher keeps published events for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.InstituteRequestEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event queue.InstituteRequestEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

func countRequests(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.InstituteRequest{}).Count(&count).Error)
	return count
}
