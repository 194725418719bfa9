package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSecureID returns a public identifier of the form "<prefix>_<random>"
// where the random part is `length` characters drawn from [0-9a-z] using
// crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("idgen: length must be positive, got %d", length)
	}

	max := big.NewInt(int64(len(charset)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("idgen: read random: %w", err)
		}
		buf[i] = charset[n.Int64()]
	}

	return prefix + "_" + string(buf), nil
}

// MustGenerateSecureID is GenerateSecureID that panics on failure. Random
// source failures are unrecoverable process-level problems.
func MustGenerateSecureID(prefix string, length int) string {
	id, err := GenerateSecureID(prefix, length)
	if err != nil {
		panic(err)
	}
	return id
}
