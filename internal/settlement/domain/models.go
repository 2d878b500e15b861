package domain

import (
	"time"
)

const (
	// HardBatchCap bounds a single run regardless of configuration.
	HardBatchCap = 2000

	DefaultSettlementAgeDays = 7
	DefaultBatchSize         = 1000
)

// Config is the persisted process-wide settlement configuration
// singleton. Missing rows self-heal with defaults on first access, and
// last-run telemetry is overwritten by every run.
type Config struct {
	ID                int64  `gorm:"primaryKey"`
	Enabled           bool   `gorm:"not null;default:true"`
	SettlementAgeDays int    `gorm:"not null;default:7"`
	BatchSize         int    `gorm:"not null;default:1000"`
	CronSchedule      string `gorm:"type:text;not null;default:''"`

	LastRunAt        *time.Time `gorm:""`
	LastSettledCount int        `gorm:"not null;default:0"`
	LastErrorCount   int        `gorm:"not null;default:0"`
	LastError        *string    `gorm:"type:text"`

	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Config) TableName() string { return "settlement_configs" }

// EffectiveBatchSize applies the default and the hard cap.
func (c Config) EffectiveBatchSize() int {
	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if size > HardBatchCap {
		size = HardBatchCap
	}
	return size
}

// CarryForwardResult summarizes the carry-forward half of a run.
type CarryForwardResult struct {
	CreatedCount int      `json:"createdCount"`
	SkippedCount int      `json:"skippedCount"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors,omitempty"`
}

// RunResult is the operator-facing summary of one settlement invocation.
type RunResult struct {
	Success      bool               `json:"success"`
	SettledCount int                `json:"settledCount"`
	SkippedCount int                `json:"skippedCount"`
	ErrorCount   int                `json:"errorCount"`
	ExecutedAt   time.Time          `json:"executedAt"`
	Errors       []string           `json:"errors,omitempty"`
	CarryForward CarryForwardResult `json:"carryForward"`
}
