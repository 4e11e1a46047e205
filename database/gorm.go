package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/config"
	"github.com/sahilchouksey/student-records/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type GORMStore struct {
	db *gorm.DB
}

// StartGORM opens the database selected by DB_DRIVER. Unique constraint
// violations are translated to gorm.ErrDuplicatedKey for both drivers.
func StartGORM(env *config.EnvironmentVariable) (*GORMStore, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if env.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	gormConfig := &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch env.DB_DRIVER {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			env.DB_HOST,
			env.DB_USER_NAME,
			env.DB_PASSWORD,
			env.DB_NAME,
			env.DB_PORT,
			env.DB_SSL_MODE,
		)
		dialector = postgres.Open(dsn)
		gormConfig.PrepareStmt = true
	case "sqlite":
		dialector = sqlite.Open(env.DB_PATH + "?_foreign_keys=on&_busy_timeout=5000")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, env.DB_DRIVER)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		log.Errorw("unable to connect to database", "driver", env.DB_DRIVER, "error", err)
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if env.DB_DRIVER == "sqlite" {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Infow("connected to database", "driver", env.DB_DRIVER)

	return &GORMStore{db: db}, nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	log.Info("running database migrations")

	err := s.db.AutoMigrate(
		&model.User{},
		&model.InstituteRequest{},
		&model.AdminAuditLog{},
		&model.JWTTokenBlacklist{},
		&model.CronJobLog{},
	)
	if err != nil {
		log.Errorw("migration failed", "error", err)
		return err
	}

	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services and handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
