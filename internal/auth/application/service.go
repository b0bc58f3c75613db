package application

import (
	"time"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

// Config carries service-level tunables resolved at bootstrap.
type Config struct {
	ServiceName          string
	DefaultRole          domain.Role
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	DirectoryTimeout     time.Duration
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
}

type Service struct {
	cfg         Config
	permissions domain.PermissionTable
	credentials ports.CredentialRepository
	eventDedup  ports.EventDedupRepository
	idempotency ports.IdempotencyRepository
	directory   ports.UserDirectory
	lockouts    ports.LockoutStore
	denylist    ports.TokenDenylist
	hasher      ports.PasswordHasher
	signer      ports.TokenSigner
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Permissions domain.PermissionTable
	Credentials ports.CredentialRepository
	EventDedup  ports.EventDedupRepository
	Idempotency ports.IdempotencyRepository
	Directory   ports.UserDirectory
	Lockouts    ports.LockoutStore
	Denylist    ports.TokenDenylist
	Hasher      ports.PasswordHasher
	TokenSigner ports.TokenSigner
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "auth-service"
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = domain.RoleUser
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if cfg.DirectoryTimeout <= 0 {
		cfg.DirectoryTimeout = 5 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = 7 * 24 * time.Hour
	}

	return &Service{
		cfg:         cfg,
		permissions: deps.Permissions,
		credentials: deps.Credentials,
		eventDedup:  deps.EventDedup,
		idempotency: deps.Idempotency,
		directory:   deps.Directory,
		lockouts:    deps.Lockouts,
		denylist:    deps.Denylist,
		hasher:      deps.Hasher,
		signer:      deps.TokenSigner,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}
