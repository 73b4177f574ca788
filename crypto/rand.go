package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const AlphanumericAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const (
	// RefreshTokenBytes is the entropy of a refresh token before hex encoding.
	RefreshTokenBytes = 40
	// VerificationTokenBytes is the entropy of an email verification token.
	VerificationTokenBytes = 32
)

// RandomHex returns n cryptographically random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// RandomString returns a string of length characters drawn uniformly from
// alphabet. It panics if the system random source fails.
func RandomString(length int, alphabet string) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto: random source failed: %v", err))
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b)
}
