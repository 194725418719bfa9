package auth

import "golang.org/x/crypto/bcrypt"

// BcryptHasher implements password hashing with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher wires a hasher. Zero cost falls back to the bcrypt
// default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
