package postgres

import (
	"time"

	"github.com/google/uuid"
)

type credentialModel struct {
	UserID                uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Email                 string     `gorm:"column:email"`
	FirstName             string     `gorm:"column:first_name"`
	LastName              string     `gorm:"column:last_name"`
	Role                  string     `gorm:"column:role"`
	PasswordHash          string     `gorm:"column:password_hash"`
	RefreshTokenHash      *string    `gorm:"column:refresh_token_hash"`
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (credentialModel) TableName() string { return "credentials" }

type processedEventModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (processedEventModel) TableName() string { return "auth_processed_events" }

type authIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (authIdempotencyModel) TableName() string { return "auth_idempotency" }
