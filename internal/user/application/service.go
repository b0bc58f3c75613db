package application

import (
	"time"

	"github.com/leocisternasa/mediprotek-test/internal/user/domain"
	"github.com/leocisternasa/mediprotek-test/internal/user/ports"
)

// Config carries service-level tunables resolved at bootstrap.
type Config struct {
	ServiceName     string
	DefaultRole     domain.Role
	DefaultPageSize int
	MaxPageSize     int
	IdempotencyTTL  time.Duration
}

type Service struct {
	cfg         Config
	users       ports.UserRepository
	outbox      ports.OutboxRepository
	idempotency ports.IdempotencyRepository
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Users       ports.UserRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "user-service"
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleUser
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}

	return &Service{
		cfg:         cfg,
		users:       deps.Users,
		outbox:      deps.Outbox,
		idempotency: deps.Idempotency,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
