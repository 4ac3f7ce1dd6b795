package model

import (
	"time"

	"github.com/google/uuid"
)

// Referral links a referrer and a referee for a course recommendation.
// ReferrerEmail and RefereeEmail hold salted one-way hashes, never plaintext.
type Referral struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ReferrerName  string    `gorm:"type:varchar(255);not null" json:"referrer_name"`
	ReferrerEmail string    `gorm:"type:text;not null" json:"referrer_email"`
	RefereeName   string    `gorm:"type:varchar(255);not null" json:"referee_name"`
	RefereeEmail  string    `gorm:"type:text;not null" json:"referee_email"`
	CourseName    string    `gorm:"type:varchar(255);not null" json:"course_name"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Referral) TableName() string { return "referrals" }
