package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewNumericCode returns a cryptographically random code of exactly digits
// ASCII digits, uniform over the whole range including leading zeros.
func NewNumericCode(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", fmt.Errorf("generate code: unsupported length %d", digits)
	}
	space := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, space)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
