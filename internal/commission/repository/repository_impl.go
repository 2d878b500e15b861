package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/bancanet/bancanet/internal/commission/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RepositoryImpl struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRepository(gdb *gorm.DB, log *zap.Logger) domain.Repository {
	return &RepositoryImpl{db: gdb, log: log.Named("commission.repository")}
}

// FindCurrent returns the newest policy version effective at the given
// time, or nil when the entity has none. A document whose rule list does
// not parse is logged and reported as absent, never as an error.
func (r *RepositoryImpl) FindCurrent(ctx context.Context, kind domain.Origin, ownerID snowflake.ID, at time.Time) (*domain.Policy, error) {
	var doc domain.PolicyDocument
	err := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", kind, ownerID).
		Where("effective_from IS NULL OR effective_from <= ?", at).
		Where("effective_to IS NULL OR effective_to >= ?", at).
		Order("version DESC").
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rules []domain.Rule
	if err := json.Unmarshal(doc.Rules, &rules); err != nil {
		r.log.Warn("malformed policy document, failing closed",
			zap.String("kind", string(kind)),
			zap.String("owner_id", ownerID.String()),
			zap.Int("version", doc.Version),
			zap.Error(err),
		)
		return nil, nil
	}

	return &domain.Policy{
		Version:        doc.Version,
		EffectiveFrom:  doc.EffectiveFrom,
		EffectiveTo:    doc.EffectiveTo,
		DefaultPercent: doc.DefaultPercent,
		Rules:          rules,
	}, nil
}
