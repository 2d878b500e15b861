package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Origin names the hierarchy level whose policy produced a commission.
type Origin string

const (
	OriginSeller Origin = "seller"
	OriginWindow Origin = "window"
	OriginBank   Origin = "bank"
	OriginNone   Origin = "none"
)

// PolicyDocument is the stored, versioned commission policy row. The
// ordered rule list lives in a JSON column; a document is immutable once
// a settled computation references it, edits create a new version.
type PolicyDocument struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	OwnerKind      Origin          `gorm:"type:text;not null;uniqueIndex:ux_policies_owner_version,priority:1"`
	OwnerID        snowflake.ID    `gorm:"not null;uniqueIndex:ux_policies_owner_version,priority:2"`
	Version        int             `gorm:"not null;uniqueIndex:ux_policies_owner_version,priority:3"`
	EffectiveFrom  *time.Time      `gorm:""`
	EffectiveTo    *time.Time      `gorm:""`
	DefaultPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"`
	Rules          datatypes.JSON  `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PolicyDocument) TableName() string { return "commission_policies" }

// Policy is a parsed policy document.
type Policy struct {
	Version        int
	EffectiveFrom  *time.Time
	EffectiveTo    *time.Time
	DefaultPercent decimal.Decimal
	Rules          []Rule
}

// Rule is one pricing rule. Unset lotteryId/betType act as wildcards and
// the multiplier range is inclusive on both ends. Stored order is the
// precedence order.
type Rule struct {
	ID        string          `json:"id,omitempty"`
	LotteryID string          `json:"lotteryId,omitempty"`
	BetType   string          `json:"betType,omitempty"`
	Range     MultiplierRange `json:"multiplierRange"`
	Percent   decimal.Decimal `json:"percent"`
}

type MultiplierRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Matches reports whether the rule applies to the given bet line fields.
func (r Rule) Matches(lotteryID, betType string, multiplierX decimal.Decimal) bool {
	if r.LotteryID != "" && r.LotteryID != lotteryID {
		return false
	}
	if r.BetType != "" && r.BetType != betType {
		return false
	}
	if multiplierX.LessThan(r.Range.Min) || multiplierX.GreaterThan(r.Range.Max) {
		return false
	}
	return true
}

// BetInput is the bet-line view the resolver prices against.
type BetInput struct {
	LotteryID   string
	BetType     string
	MultiplierX decimal.Decimal
	Amount      decimal.Decimal
}

// Resolution is the resolved commission snapshot stored on the bet line.
type Resolution struct {
	Percent decimal.Decimal
	Amount  decimal.Decimal
	Origin  Origin
	RuleID  string
}

// PolicyLevel pairs a policy with the hierarchy level it came from,
// ordered most-specific first when handed to the resolver.
type PolicyLevel struct {
	Origin Origin
	Policy *Policy
}

// Round2 rounds money half-up to two decimals. Commission amounts are
// non-negative, so half away from zero is half-up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
