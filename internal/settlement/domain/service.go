package domain

import (
	"context"
	"errors"
)

type Service interface {
	// TriggerManual runs settlement + carry-forward on behalf of an
	// operator. It proceeds even when settlement is globally disabled.
	TriggerManual(ctx context.Context, operatorID string) (RunResult, error)

	// TriggerScheduled is the unattended entry point. It is a no-op when
	// settlement is disabled.
	TriggerScheduled(ctx context.Context) (RunResult, error)

	// CurrentConfig returns the persisted singleton, creating it with
	// defaults when missing.
	CurrentConfig(ctx context.Context) (Config, error)

	// UpdateConfig overwrites the tunable fields of the singleton.
	UpdateConfig(ctx context.Context, cfg Config) (Config, error)
}

type ConfigRepository interface {
	// Get loads the singleton, creating it with the given defaults when
	// it does not exist yet.
	Get(ctx context.Context, defaults Config) (Config, error)

	// Save persists tunable fields and telemetry.
	Save(ctx context.Context, cfg Config) error
}

var ErrRunRejected = errors.New("settlement_run_rejected")
