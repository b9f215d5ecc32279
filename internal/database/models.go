package database

import (
	"time"

	"github.com/google/uuid"
)

// CorrectionRun is one archived invocation of the outlier corrector
type CorrectionRun struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey;column:id"`
	CreatedAt       time.Time          `gorm:"column:created_at;index"`
	Source          string             `gorm:"column:source"`
	Threshold       float64            `gorm:"column:threshold;not null"`
	StartDepthIndex int                `gorm:"column:start_depth_index;not null"`
	Method          string             `gorm:"column:method;not null"`
	Strict          bool               `gorm:"column:strict;not null"`
	DepthRows       int                `gorm:"column:depth_rows"`
	TimeColumns     int                `gorm:"column:time_columns"`
	FlaggedSamples  int                `gorm:"column:flagged_samples"`
	Fallbacks       int                `gorm:"column:fallbacks"`
	Columns         []CorrectionColumn `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for CorrectionRun
func (CorrectionRun) TableName() string {
	return "correction_runs"
}

// CorrectionColumn records a time column in which spikes were found
type CorrectionColumn struct {
	ID            uint      `gorm:"primaryKey;autoIncrement;column:id"`
	RunID         uuid.UUID `gorm:"type:uuid;index;column:run_id"`
	TimeColumn    int       `gorm:"column:time_column"`
	JumpPoints    int       `gorm:"column:jump_points"`
	Flagged       int       `gorm:"column:flagged"`
	AppliedMethod string    `gorm:"column:applied_method"`
	Warning       string    `gorm:"column:warning"`
}

// TableName specifies the table name for CorrectionColumn
func (CorrectionColumn) TableName() string {
	return "correction_columns"
}
