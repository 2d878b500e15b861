package repository

import (
	"context"
	"errors"

	"github.com/bancanet/bancanet/internal/settlement/domain"
	"github.com/bancanet/bancanet/pkg/db"
	"gorm.io/gorm"
)

const singletonID = 1

type ConfigRepositoryImpl struct {
	db *gorm.DB
}

func NewConfigRepository(gdb *gorm.DB) domain.ConfigRepository {
	return &ConfigRepositoryImpl{db: gdb}
}

func (r *ConfigRepositoryImpl) Get(ctx context.Context, defaults domain.Config) (domain.Config, error) {
	var cfg domain.Config
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", singletonID).Error
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Config{}, err
	}

	defaults.ID = singletonID
	if err := r.db.WithContext(ctx).Create(&defaults).Error; err != nil {
		// Lost a create race with a concurrent first access.
		if db.IsDuplicateKeyErr(err) {
			if err := r.db.WithContext(ctx).First(&cfg, "id = ?", singletonID).Error; err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}
	return defaults, nil
}

func (r *ConfigRepositoryImpl) Save(ctx context.Context, cfg domain.Config) error {
	cfg.ID = singletonID
	return r.db.WithContext(ctx).Save(&cfg).Error
}
