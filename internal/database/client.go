package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateConnection opens a gorm handle on a TimescaleDB/PostgreSQL database.
// SQL warnings and slow queries are routed through the given zap logger.
func CreateConnection(connectionString string, zl *zap.Logger) (*gorm.DB, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("no TimescaleDB connection string configured")
	}

	dbLogger := logger.New(
		zap.NewStdLog(zl),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	zl.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a TimescaleDB connection: %w", err)
	}
	zl.Info("TimescaleDB connection successful")

	return db, nil
}

// Migrate creates or updates the archive tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&CorrectionRun{}, &CorrectionColumn{}); err != nil {
		return fmt.Errorf("error migrating archive tables: %w", err)
	}
	return nil
}
