package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Code purposes.
const (
	PurposeVerifyEmail   = "verify"
	PurposeResetPassword = "reset"
)

// CodeStore keeps short-lived one-time codes keyed by purpose and subject.
type CodeStore interface {
	Save(ctx context.Context, purpose, subject, code string, ttl time.Duration) error
	// Consume reports whether code matches and invalidates it on a match.
	// Implementations also invalidate the code after a small number of wrong
	// guesses, so a four digit code cannot be enumerated.
	Consume(ctx context.Context, purpose, subject, code string) (bool, error)
}

// generateCode returns a random four digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
