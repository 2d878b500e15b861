package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Resolve prices a bet line against the given policy chain,
	// most-specific level first. Pure and deterministic.
	Resolve(input BetInput, levels []PolicyLevel) Resolution

	// PriceBetLine loads the seller/window/bank policy chain effective at
	// the business date and resolves the commission for one bet line.
	PriceBetLine(ctx context.Context, sellerID snowflake.ID, at time.Time, input BetInput) (Resolution, error)

	// Invalidate drops the cached policy for one entity after an edit.
	Invalidate(kind Origin, ownerID snowflake.ID)
}

type Repository interface {
	// FindCurrent loads and parses the newest policy document for an
	// entity that is effective at the given time. A malformed document
	// is reported as absent.
	FindCurrent(ctx context.Context, kind Origin, ownerID snowflake.ID, at time.Time) (*Policy, error)
}
