package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the per-account document holding the watchlist and holdings.
type Profile struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;"`
	WatchedCoins []string          `gorm:"serializer:json;not null"`
	Holdings     map[string]string `gorm:"serializer:json;not null"`
	UpdatedAt    time.Time
}

const (
	ColumnWatchedCoins = "watched_coins"
	ColumnHoldings     = "holdings"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;"`
	Email          string    `gorm:"uniqueIndex;not null"`
	DisplayName    string
	PasswordHash   string `gorm:"not null"`
	LastAuthAt     time.Time
	ResetTokenHash string `gorm:"index"`
	ResetExpiresAt time.Time
	CreatedAt      time.Time
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

// RefreshSession stores the hash of an issued refresh token.
type RefreshSession struct {
	ID        uint
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time
}
