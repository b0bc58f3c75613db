package postgres

import (
	"gorm.io/gorm"

	"github.com/leocisternasa/mediprotek-test/internal/user/ports"
)

type Repositories struct {
	Users       ports.UserRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:       &userRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
