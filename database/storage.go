package database

import "gorm.io/gorm"

// Storage is the persistence handle shared by the server, the cron jobs and the seed CLI
type Storage interface {
	Init() error
	Close() error
	HealthCheck() error
	GetDB() *gorm.DB
}
