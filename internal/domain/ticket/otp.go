package ticket

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a one-time code. Codes are scoped to
// one active ticket, so uniqueness across tickets is not required.
const CodeLength = 6

var codeBase = big.NewInt(10) //nolint:gochecknoglobals // constant radix

// GenerateCode returns a uniform random numeric string of n digits.
func GenerateCode(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: length %d", ErrCodeGeneration, n)
	}
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, codeBase)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCodeGeneration, err)
		}
		digits[i] = '0' + byte(d.Int64())
	}
	return string(digits), nil
}
