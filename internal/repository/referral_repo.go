package repository

import (
	"context"

	"accredian/referralhub/internal/model"
)

// ReferralRepository is create-only: referrals are never updated or deleted here.
type ReferralRepository interface {
	Create(ctx context.Context, referral *model.Referral) error
}
