// Package otp generates one-time numeric codes for email verification and
// login second factors.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/linguahub/linguahub/internal/domain"
)

// codeSpace is the number of distinct 6-digit codes (100000..999999).
var codeSpace = big.NewInt(900000)

// Generate returns a uniformly distributed 6-digit code. Codes never have a
// leading zero, so they survive clients that treat them as integers.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// NewChallenge builds a fresh challenge of the given purpose expiring after ttl.
func NewChallenge(purpose domain.ChallengePurpose, ttl time.Duration) (*domain.Challenge, error) {
	code, err := Generate()
	if err != nil {
		return nil, err
	}
	return &domain.Challenge{
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}
