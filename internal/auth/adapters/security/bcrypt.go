package security

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher produces the single password hash stored per credential row.
// The hash never leaves this service; lifecycle events and API payloads
// carry identity fields only.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps out-of-range costs to the bcrypt default so a bad
// BCRYPT_COST value cannot silently weaken hashing.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns an opaque error on mismatch; the login path maps it to the
// same response a missing account gets.
func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
