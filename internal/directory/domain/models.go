package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
)

// Bank, Window and Seller form the three-level operating hierarchy.
// The directory is maintained elsewhere; this core reads it to enumerate
// active entities and to walk parent links.

type Bank struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	IsActive  bool         `gorm:"not null;default:true;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Bank) TableName() string { return "banks" }

type Window struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	BankID    snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	IsActive  bool         `gorm:"not null;default:true;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Window) TableName() string { return "windows" }

type Seller struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	WindowID  snowflake.ID `gorm:"not null;index"`
	BankID    snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	IsActive  bool         `gorm:"not null;default:true;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Seller) TableName() string { return "sellers" }

// SellerChain holds a seller's parent links for policy resolution.
type SellerChain struct {
	SellerID snowflake.ID
	WindowID snowflake.ID
	BankID   snowflake.ID
}

type Repository interface {
	// ListActiveIDs enumerates active entity ids for one dimension.
	ListActiveIDs(ctx context.Context, dim statementdomain.Dimension) ([]snowflake.ID, error)

	// SellerChain resolves a seller's window and bank parents.
	SellerChain(ctx context.Context, sellerID snowflake.ID) (SellerChain, error)
}
