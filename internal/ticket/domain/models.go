package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusPending   TicketStatus = "pending"
	TicketStatusWinner    TicketStatus = "winner"
	TicketStatusLoser     TicketStatus = "loser"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is a sold ticket aggregating bet lines. Tickets are produced by
// the sale path upstream; the accounting core only reads them.
type Ticket struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	SellerID     snowflake.ID    `gorm:"not null;index"`
	WindowID     snowflake.ID    `gorm:"not null;index"`
	BankID       snowflake.ID    `gorm:"not null;index"`
	BusinessDate time.Time       `gorm:"type:date;not null;index"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalPayout  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Status       TicketStatus    `gorm:"type:text;not null"`
	EvaluatedAt  *time.Time      `gorm:"index"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Ticket) TableName() string { return "tickets" }

// BetLine is one priced number within a ticket. The commission snapshot
// is resolved once at pricing time and never recomputed, so settled
// history stays stable when policies change.
type BetLine struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	TicketID    snowflake.ID    `gorm:"not null;index"`
	LotteryID   string          `gorm:"type:text;not null"`
	BetType     string          `gorm:"type:text;not null"`
	Number      string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	MultiplierX decimal.Decimal `gorm:"type:numeric(10,2);not null"`

	CommissionPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"`
	CommissionAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	CommissionOrigin  string          `gorm:"type:text;not null;default:'none'"`
	CommissionRuleID  *string         `gorm:"type:text"`

	IsExcluded bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BetLine) TableName() string { return "bet_lines" }
