package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Commitment is a pre-generated (hash, secret, percentage) triple. The hash
// is public from the moment a round opens; the secret and percentage stay
// sealed until the round is revealed. hash == DigestSecret(secret) always.
type Commitment struct {
	Hash       string  `json:"hash" redis:"hash"`
	Secret     string  `json:"-" redis:"secret"`
	Percentage float64 `json:"-" redis:"percentage"`

	Used      bool      `json:"used" redis:"used"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
}

// NewCommitment draws a fresh secret and percentage from crypto/rand.
func NewCommitment() (*Commitment, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}
	percentage, err := generatePercentage()
	if err != nil {
		return nil, err
	}
	return &Commitment{
		Hash:       DigestSecret(secret),
		Secret:     secret,
		Percentage: percentage,
		CreatedAt:  time.Now(),
	}, nil
}

// DigestSecret is the commit function: hex-encoded SHA-256 of the secret.
func DigestSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func generateSecret() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// generatePercentage returns a uniform float in [0, 1).
func generatePercentage() (float64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("failed to generate percentage: %w", err)
	}
	// 53 bits of entropy, the full precision of a float64 mantissa.
	n := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(n) / (1 << 53), nil
}
