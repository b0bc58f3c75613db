package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/leocisternasa/mediprotek-test/internal/user/domain"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		UserID:    row.UserID,
		Email:     row.Email,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Role:      domain.Role(row.Role),
		BirthDate: row.BirthDate,
		Phone:     row.Phone,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
