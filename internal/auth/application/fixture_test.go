package application_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leocisternasa/mediprotek-test/internal/auth/application"
	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

type fakeCredentials struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]domain.Credential
	failCreate bool
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{byID: map[uuid.UUID]domain.Credential{}}
}

func (f *fakeCredentials) Create(_ context.Context, params ports.CreateCredentialParams) (domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return domain.Credential{}, fmt.Errorf("credential store down")
	}
	if _, ok := f.byID[params.UserID]; ok {
		return domain.Credential{}, domain.ErrConflict
	}
	for _, c := range f.byID {
		if c.Email == params.Email {
			return domain.Credential{}, domain.ErrConflict
		}
	}
	cred := domain.Credential{
		UserID:       params.UserID,
		Email:        params.Email,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Role:         params.Role,
		PasswordHash: params.PasswordHash,
		CreatedAt:    params.CreatedAtUTC,
		UpdatedAt:    params.CreatedAtUTC,
	}
	f.byID[params.UserID] = cred
	return cred, nil
}

func (f *fakeCredentials) GetByEmail(_ context.Context, email string) (domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.Email == email {
			return c, nil
		}
	}
	return domain.Credential{}, domain.ErrNotFound
}

func (f *fakeCredentials) GetByID(_ context.Context, userID uuid.UUID) (domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.byID[userID]
	if !ok {
		return domain.Credential{}, domain.ErrNotFound
	}
	return cred, nil
}

func (f *fakeCredentials) MirrorIdentity(_ context.Context, params ports.MirrorIdentityParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.byID[params.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	cred.Email = params.Email
	cred.FirstName = params.FirstName
	cred.LastName = params.LastName
	cred.Role = params.Role
	cred.UpdatedAt = params.UpdatedAtUTC
	f.byID[params.UserID] = cred
	return nil
}

func (f *fakeCredentials) SetRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	cred.RefreshTokenHash = &tokenHash
	cred.RefreshTokenExpiresAt = &expiresAt
	cred.UpdatedAt = updatedAt
	f.byID[userID] = cred
	return nil
}

func (f *fakeCredentials) ClearRefreshToken(_ context.Context, userID uuid.UUID, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	cred.RefreshTokenHash = nil
	cred.RefreshTokenExpiresAt = nil
	cred.UpdatedAt = updatedAt
	f.byID[userID] = cred
	return nil
}

func (f *fakeCredentials) Delete(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, userID)
	return nil
}

type fakeDirectory struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]ports.DirectoryUser
	deletes int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byID: map[uuid.UUID]ports.DirectoryUser{}}
}

func (f *fakeDirectory) CreateUser(_ context.Context, params ports.DirectoryCreateParams) (ports.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == params.Email {
			return ports.DirectoryUser{}, domain.ErrConflict
		}
	}
	now := time.Now().UTC()
	user := ports.DirectoryUser{
		UserID:    uuid.New(),
		Email:     params.Email,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Role:      params.Role,
		BirthDate: params.BirthDate,
		Phone:     params.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.byID[user.UserID] = user
	return user, nil
}

func (f *fakeDirectory) GetUser(_ context.Context, userID uuid.UUID) (ports.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[userID]
	if !ok {
		return ports.DirectoryUser{}, domain.ErrNotFound
	}
	return user, nil
}

func (f *fakeDirectory) ListUsers(_ context.Context, params ports.DirectoryListParams) ([]ports.DirectoryUser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.DirectoryUser, 0, len(f.byID))
	for _, u := range f.byID {
		if params.Search != "" && !strings.Contains(u.Email, params.Search) {
			continue
		}
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDirectory) UpdateUser(_ context.Context, params ports.DirectoryUpdateParams) (ports.DirectoryUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[params.UserID]
	if !ok {
		return ports.DirectoryUser{}, domain.ErrNotFound
	}
	if params.Email != nil {
		user.Email = *params.Email
	}
	if params.FirstName != nil {
		user.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		user.LastName = *params.LastName
	}
	if params.Role != nil {
		user.Role = *params.Role
	}
	if params.BirthDate != nil {
		user.BirthDate = params.BirthDate
	}
	if params.Phone != nil {
		user.Phone = params.Phone
	}
	user.UpdatedAt = time.Now().UTC()
	f.byID[params.UserID] = user
	return user, nil
}

func (f *fakeDirectory) DeleteUser(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, userID)
	f.deletes++
	return nil
}

func (f *fakeDirectory) BulkDeleteUsers(_ context.Context, userIDs []uuid.UUID) (ports.DirectoryBulkDeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := ports.DirectoryBulkDeleteResult{}
	for _, id := range userIDs {
		if _, ok := f.byID[id]; !ok {
			result.Missing = append(result.Missing, id)
			continue
		}
		delete(f.byID, id)
		f.deletes++
		result.Deleted = append(result.Deleted, id)
	}
	return result, nil
}

func (f *fakeDirectory) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeDedup struct {
	mu        sync.Mutex
	processed map[string]string
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{processed: map[string]string{}}
}

func (f *fakeDedup) IsDuplicate(_ context.Context, eventID string, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeDedup) MarkProcessed(_ context.Context, eventID, eventType string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[eventID] = eventType
	return nil
}

type fakeAuthIdempotency struct {
	mu      sync.Mutex
	records map[string]ports.IdempotencyRecord
}

func newFakeAuthIdempotency() *fakeAuthIdempotency {
	return &fakeAuthIdempotency{records: map[string]ports.IdempotencyRecord{}}
}

func (f *fakeAuthIdempotency) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeAuthIdempotency) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[key]; ok {
		return domain.ErrConflict
	}
	f.records[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, Status: "PENDING", ExpiresAt: expiresAt}
	return nil
}

func (f *fakeAuthIdempotency) Complete(_ context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.records[key]
	rec.Status = "COMPLETED"
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	rec.UpdatedAt = at
	f.records[key] = rec
	return nil
}

type fakeLockouts struct {
	mu    sync.Mutex
	state map[string]ports.LockoutState
}

func newFakeLockouts() *fakeLockouts {
	return &fakeLockouts{state: map[string]ports.LockoutState{}}
}

func (f *fakeLockouts) Get(_ context.Context, key string) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[key], nil
}

func (f *fakeLockouts) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.state[key]
	state.FailedCount++
	if state.FailedCount >= threshold {
		until := now.Add(lockoutWindow)
		state.LockedUntil = &until
	}
	f.state[key] = state
	return state, nil
}

func (f *fakeLockouts) Clear(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, key)
	return nil
}

type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]bool
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{revoked: map[uuid.UUID]bool{}}
}

func (f *fakeDenylist) MarkRevoked(_ context.Context, tokenID uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = true
	return nil
}

func (f *fakeDenylist) IsRevoked(_ context.Context, tokenID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[tokenID], nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return fmt.Errorf("hash mismatch")
	}
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	seq    int
	tokens map[string]ports.AuthClaims
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{tokens: map[string]ports.AuthClaims{}}
}

func (f *fakeSigner) Sign(claims ports.AuthClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token := fmt.Sprintf("token-%d-%s", f.seq, claims.Kind)
	f.tokens[token] = claims
	return token, nil
}

func (f *fakeSigner) ParseAndValidate(token string) (ports.AuthClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.tokens[token]
	if !ok {
		return ports.AuthClaims{}, fmt.Errorf("unknown token")
	}
	if time.Now().After(claims.ExpiresAt) {
		return ports.AuthClaims{}, fmt.Errorf("token expired")
	}
	return claims, nil
}

type fixture struct {
	service     *application.Service
	credentials *fakeCredentials
	directory   *fakeDirectory
	dedup       *fakeDedup
	lockouts    *fakeLockouts
	denylist    *fakeDenylist
	signer      *fakeSigner
}

func defaultTestConfig() application.Config {
	return application.Config{
		ServiceName:          "auth-service-test",
		DefaultRole:          domain.RoleUser,
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		FailedLoginThreshold: 3,
		LockoutDuration:      30 * time.Minute,
	}
}

func newFixture() *fixture {
	return newFixtureWithConfig(defaultTestConfig())
}

func newFixtureWithConfig(cfg application.Config) *fixture {
	credentials := newFakeCredentials()
	directory := newFakeDirectory()
	dedup := newFakeDedup()
	lockouts := newFakeLockouts()
	denylist := newFakeDenylist()
	signer := newFakeSigner()

	svc := application.NewService(application.Dependencies{
		Config:      cfg,
		Permissions: domain.DefaultPermissions(),
		Credentials: credentials,
		EventDedup:  dedup,
		Idempotency: newFakeAuthIdempotency(),
		Directory:   directory,
		Lockouts:    lockouts,
		Denylist:    denylist,
		Hasher:      fakeHasher{},
		TokenSigner: signer,
	})

	return &fixture{
		service:     svc,
		credentials: credentials,
		directory:   directory,
		dedup:       dedup,
		lockouts:    lockouts,
		denylist:    denylist,
		signer:      signer,
	}
}
