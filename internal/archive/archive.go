// Package archive keeps a history of correction runs in TimescaleDB.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rahulmitra166/UDV-DataFiltering/internal/database"
	"github.com/rahulmitra166/UDV-DataFiltering/internal/udv"
)

// Archive records correction runs and their affected columns
type Archive struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// Open connects to the database and migrates the archive tables
func Open(connectionString string, logger *zap.SugaredLogger) (*Archive, error) {
	db, err := database.CreateConnection(connectionString, logger.Desugar())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return New(db, logger), nil
}

// New wraps an existing gorm handle
func New(db *gorm.DB, logger *zap.SugaredLogger) *Archive {
	return &Archive{
		db:     db,
		logger: logger,
	}
}

// NewRunRecord summarises a correction result. Only columns where spikes
// were masked are kept.
func NewRunRecord(source string, params udv.Params, res *udv.Result) database.CorrectionRun {
	rows, cols := res.Corrected.Dims()
	run := database.CorrectionRun{
		ID:              uuid.New(),
		CreatedAt:       time.Now().UTC(),
		Source:          source,
		Threshold:       params.Threshold,
		StartDepthIndex: params.StartDepthIndex,
		Method:          string(params.Method),
		Strict:          params.Strict,
		DepthRows:       rows,
		TimeColumns:     cols,
	}

	for _, c := range res.Columns {
		if c.Flagged == 0 {
			continue
		}
		col := database.CorrectionColumn{
			RunID:         run.ID,
			TimeColumn:    c.Column,
			JumpPoints:    len(c.JumpPoints),
			Flagged:       c.Flagged,
			AppliedMethod: string(c.Applied),
		}
		if c.Warning != nil {
			col.Warning = c.Warning.Error()
			run.Fallbacks++
		}
		run.FlaggedSamples += c.Flagged
		run.Columns = append(run.Columns, col)
	}
	return run
}

// Record stores a run and returns its identifier
func (a *Archive) Record(ctx context.Context, source string, params udv.Params, res *udv.Result) (uuid.UUID, error) {
	run := NewRunRecord(source, params, res)
	if err := a.db.WithContext(ctx).Create(&run).Error; err != nil {
		return uuid.Nil, fmt.Errorf("error archiving correction run: %w", err)
	}
	a.logger.Debugf("archived run %s (%d flagged samples in %d columns)", run.ID, run.FlaggedSamples, len(run.Columns))
	return run.ID, nil
}

// Recent returns up to limit runs, newest first, with their columns
func (a *Archive) Recent(ctx context.Context, limit int) ([]database.CorrectionRun, error) {
	var runs []database.CorrectionRun
	err := a.db.WithContext(ctx).
		Preload("Columns").
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("error querying correction runs: %w", err)
	}
	return runs, nil
}

// Close releases the underlying connection pool
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
