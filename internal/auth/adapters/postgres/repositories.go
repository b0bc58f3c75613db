package postgres

import (
	"gorm.io/gorm"

	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

type Repositories struct {
	Credentials ports.CredentialRepository
	EventDedup  ports.EventDedupRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Credentials: &credentialRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
