package service

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// CodeGenerator produces a one-time code.
type CodeGenerator func() (string, error)

var codeSpan = big.NewInt(9000)

// GenerateCode returns a uniformly random 4-digit code in 1000-9999.
// The 9000-value space is small; the short expiry is the only brute-force bound.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+1000, 10), nil
}
