package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Dimension identifies a level of the banca hierarchy. Statement rows,
// payments and closing balances are all keyed by (dimension, entity).
type Dimension string

const (
	DimensionBank   Dimension = "banks"
	DimensionWindow Dimension = "windows"
	DimensionSeller Dimension = "sellers"
)

// Dimensions lists every hierarchy level in a stable order.
var Dimensions = []Dimension{DimensionSeller, DimensionWindow, DimensionBank}

// EntityRef points at one entity within a dimension.
type EntityRef struct {
	Dimension Dimension
	EntityID  snowflake.ID
}

// AccountStatement is one (day, entity) ledger row. Rows are created and
// updated by the upstream accrual process; this core only settles them
// and manufactures zero-activity continuation rows.
type AccountStatement struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	StatementDate time.Time    `gorm:"type:date;not null;uniqueIndex:ux_statements_day_entity,priority:1"`
	Dimension     Dimension    `gorm:"type:text;not null;uniqueIndex:ux_statements_day_entity,priority:2"`
	EntityID      snowflake.ID `gorm:"not null;uniqueIndex:ux_statements_day_entity,priority:3"`

	TicketCount      int             `gorm:"not null;default:0"`
	TotalSales       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalPayouts     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	SellerCommission decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	WindowCommission decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	// Balance is the day's own sales - payouts - commission.
	Balance        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalPaid      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TotalCollected decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	// RemainingBalance carries the running balance from the prior day;
	// AccumulatedBalance is the lifetime running total.
	RemainingBalance   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	AccumulatedBalance decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	IsSettled bool       `gorm:"not null;default:false;index"`
	CanEdit   bool       `gorm:"not null;default:true"`
	SettledAt *time.Time `gorm:""`
	SettledBy *string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AccountStatement) TableName() string { return "account_statements" }

// PaymentType distinguishes money handed to an entity from money
// collected from it.
type PaymentType string

const (
	PaymentTypePayment    PaymentType = "payment"
	PaymentTypeCollection PaymentType = "collection"
)

// AccountPayment is a payment or collection tied to one (day, entity).
// Reversed payments are excluded from every aggregate.
type AccountPayment struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	PaymentDate time.Time       `gorm:"type:date;not null;index:ix_payments_day_entity,priority:1"`
	Dimension   Dimension       `gorm:"type:text;not null;index:ix_payments_day_entity,priority:2"`
	EntityID    snowflake.ID    `gorm:"not null;index:ix_payments_day_entity,priority:3"`
	Type        PaymentType     `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	IsReversed  bool            `gorm:"not null;default:false"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AccountPayment) TableName() string { return "account_payments" }
