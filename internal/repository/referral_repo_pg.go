package repository

import (
	"context"

	"gorm.io/gorm"

	"accredian/referralhub/internal/model"
)

type pgReferralRepository struct {
	db *gorm.DB
}

func NewPGReferralRepository(db *gorm.DB) ReferralRepository {
	return &pgReferralRepository{db: db}
}

func (r *pgReferralRepository) Create(ctx context.Context, referral *model.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}
