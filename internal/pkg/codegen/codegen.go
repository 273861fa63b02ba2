package codegen

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	minDigits = 4
	maxDigits = 10
)

// Generator defines the contract for verification code generation.
type Generator interface {
	// Generate returns a new random code. Outputs are independent; previous
	// codes reveal nothing about future ones.
	Generate() (string, error)
}

// Numeric generates fixed-length decimal codes using crypto/rand.
type Numeric struct {
	digits int
	max    *big.Int
}

// NewNumeric constructs a Numeric generator for codes of the given length.
// Lengths outside 4..10 digits are rejected; a missing secure random source
// surfaces later as a Generate error and should be treated as fatal.
func NewNumeric(digits int) (*Numeric, error) {
	if digits < minDigits || digits > maxDigits {
		return nil, fmt.Errorf("codegen: code length must be between %d and %d digits, got %d", minDigits, maxDigits, digits)
	}

	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)

	return &Numeric{digits: digits, max: max}, nil
}

// Generate draws a uniform integer in [0, 10^digits) and zero-pads it.
func (g *Numeric) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, g.max)
	if err != nil {
		return "", fmt.Errorf("codegen: secure random source unavailable: %w", err)
	}

	return fmt.Sprintf("%0*d", g.digits, n), nil
}

// Digits returns the configured code length.
func (g *Numeric) Digits() int {
	return g.digits
}
