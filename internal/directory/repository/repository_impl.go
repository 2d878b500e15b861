package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/directory/domain"
	statementdomain "github.com/bancanet/bancanet/internal/statement/domain"
	"gorm.io/gorm"
)

var ErrSellerNotFound = errors.New("seller_not_found")

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(gdb *gorm.DB) domain.Repository {
	return &RepositoryImpl{db: gdb}
}

func (r *RepositoryImpl) ListActiveIDs(ctx context.Context, dim statementdomain.Dimension) ([]snowflake.ID, error) {
	var model any
	switch dim {
	case statementdomain.DimensionBank:
		model = &domain.Bank{}
	case statementdomain.DimensionWindow:
		model = &domain.Window{}
	case statementdomain.DimensionSeller:
		model = &domain.Seller{}
	default:
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}

	var ids []snowflake.ID
	err := r.db.WithContext(ctx).Model(model).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RepositoryImpl) SellerChain(ctx context.Context, sellerID snowflake.ID) (domain.SellerChain, error) {
	var seller domain.Seller
	err := r.db.WithContext(ctx).First(&seller, "id = ?", sellerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SellerChain{}, ErrSellerNotFound
		}
		return domain.SellerChain{}, err
	}
	return domain.SellerChain{
		SellerID: seller.ID,
		WindowID: seller.WindowID,
		BankID:   seller.BankID,
	}, nil
}
