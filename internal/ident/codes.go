package ident

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomNumericCode returns a random decimal code of exactly length
// digits, zero-padded on the left. Used for OTP codes.
func RandomNumericCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate numeric code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// RandomUppercaseCode returns a random code of uppercase ASCII
// letters. Used for business codes.
func RandomUppercaseCode(length int) (string, error) {
	buf := make([]byte, length)
	chars := big.NewInt(int64(len(upperLetters)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, chars)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		buf[i] = upperLetters[n.Int64()]
	}
	return string(buf), nil
}
