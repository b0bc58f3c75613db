package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/leocisternasa/mediprotek-test/internal/auth/domain"
)

func toDomainCredential(row credentialModel) domain.Credential {
	return domain.Credential{
		UserID:                row.UserID,
		Email:                 row.Email,
		FirstName:             row.FirstName,
		LastName:              row.LastName,
		Role:                  domain.Role(row.Role),
		PasswordHash:          row.PasswordHash,
		RefreshTokenHash:      row.RefreshTokenHash,
		RefreshTokenExpiresAt: row.RefreshTokenExpiresAt,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
