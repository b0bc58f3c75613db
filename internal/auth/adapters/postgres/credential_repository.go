package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
	"github.com/leocisternasa/mediprotek-test/internal/auth/ports"
)

type credentialRepository struct {
	db *gorm.DB
}

func (r *credentialRepository) Create(ctx context.Context, params ports.CreateCredentialParams) (domain.Credential, error) {
	rec := credentialModel{
		UserID:       params.UserID,
		Email:        params.Email,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Role:         string(params.Role),
		PasswordHash: params.PasswordHash,
		CreatedAt:    params.CreatedAtUTC,
		UpdatedAt:    params.CreatedAtUTC,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Credential{}, fmt.Errorf("%w: credential exists", domain.ErrConflict)
		}
		return domain.Credential{}, fmt.Errorf("insert credential: %w", err)
	}
	return toDomainCredential(rec), nil
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (domain.Credential, error) {
	var rec credentialModel
	err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Credential{}, fmt.Errorf("%w: credential for email", domain.ErrNotFound)
		}
		return domain.Credential{}, fmt.Errorf("query credential by email: %w", err)
	}
	return toDomainCredential(rec), nil
}

func (r *credentialRepository) GetByID(ctx context.Context, userID uuid.UUID) (domain.Credential, error) {
	var rec credentialModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Credential{}, fmt.Errorf("%w: credential %s", domain.ErrNotFound, userID)
		}
		return domain.Credential{}, fmt.Errorf("query credential by id: %w", err)
	}
	return toDomainCredential(rec), nil
}

func (r *credentialRepository) MirrorIdentity(ctx context.Context, params ports.MirrorIdentityParams) error {
	res := r.db.WithContext(ctx).
		Model(&credentialModel{}).
		Where("user_id = ?", params.UserID).
		Updates(map[string]any{
			"email":      params.Email,
			"first_name": params.FirstName,
			"last_name":  params.LastName,
			"role":       string(params.Role),
			"updated_at": params.UpdatedAtUTC,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return fmt.Errorf("%w: mirrored email exists", domain.ErrConflict)
		}
		return fmt.Errorf("mirror identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: credential %s", domain.ErrNotFound, params.UserID)
	}
	return nil
}

func (r *credentialRepository) SetRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&credentialModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"refresh_token_hash":       tokenHash,
			"refresh_token_expires_at": expiresAt,
			"updated_at":               updatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("set refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: credential %s", domain.ErrNotFound, userID)
	}
	return nil
}

func (r *credentialRepository) ClearRefreshToken(ctx context.Context, userID uuid.UUID, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&credentialModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"refresh_token_hash":       nil,
			"refresh_token_expires_at": nil,
			"updated_at":               updatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("clear refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: credential %s", domain.ErrNotFound, userID)
	}
	return nil
}

func (r *credentialRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&credentialModel{})
	if res.Error != nil {
		return fmt.Errorf("delete credential: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: credential %s", domain.ErrNotFound, userID)
	}
	return nil
}
