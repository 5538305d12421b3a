// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Reset configuration defaults.
const (
	CodeMin             = 100000
	CodeMax             = 999999
	DefaultCodeTTL      = 10 * time.Minute
	DefaultTicketTTL    = 15 * time.Minute
	DefaultMaxAttempts  = 5
	ResetTicketBytes    = 32 // 64 hex chars
	DefaultDeliveryWait = 10 * time.Second
)

// ResetPurpose separates one-time codes from the tickets minted when a code
// is verified.
type ResetPurpose string

// Reset purposes.
const (
	PurposeCode   ResetPurpose = "code"
	PurposeTicket ResetPurpose = "ticket"
)

// ResetKey identifies one pending reset entry. Users and admins have
// separate keys for the same email.
type ResetKey struct {
	Kind    Kind
	Email   string
	Purpose ResetPurpose
}

// PendingReset is a stored code or ticket. Only the hash of the secret is
// kept.
type PendingReset struct {
	Key        ResetKey
	SecretHash string
	Attempts   int
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// IsExpired reports whether the entry is no longer usable at now.
func (r *PendingReset) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ResetStore holds pending codes and tickets. Each method must be atomic
// with respect to other calls on the same key.
type ResetStore interface {
	// Save stores reset, replacing any entry under the same key.
	Save(ctx context.Context, reset *PendingReset) error

	// Consume deletes the entry under key if it is unexpired at now and its
	// hash equals secretHash. Returns ErrNotFound when there is no usable
	// entry and ErrSecretMismatch when the hash differs. A mismatch counts
	// an attempt; once maxAttempts (if positive) is reached the entry is
	// discarded.
	Consume(ctx context.Context, key ResetKey, secretHash string, now time.Time, maxAttempts int) error

	// DeleteExpired removes entries expired at now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// GenerateCode returns a uniformly random code in [CodeMin, CodeMax].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(CodeMax-CodeMin+1))
	if err != nil {
		return "", oops.Code("RESET_CODE_GENERATE_FAILED").Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+CodeMin, 10), nil
}

// GenerateResetTicket creates a random ticket.
func GenerateResetTicket() (string, error) {
	b := make([]byte, ResetTicketBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("RESET_TICKET_GENERATE_FAILED").Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// NormalizeCode canonicalizes a submitted code so that "123456", " 123456 "
// and the JSON number 123456 compare equal. Returns false when the input is
// not a decimal integer.
func NormalizeCode(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, ".eE") {
		if f != float64(int64(f)) {
			return "", false
		}
		return strconv.FormatInt(int64(f), 10), true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// HashSecret hashes a code or ticket bound to its key, so equal codes for
// different addresses do not share a hash.
func HashSecret(key ResetKey, secret string) string {
	h := sha256.New()
	h.Write([]byte(key.Kind))
	h.Write([]byte{0})
	h.Write([]byte(key.Email))
	h.Write([]byte{0})
	h.Write([]byte(key.Purpose))
	h.Write([]byte{0})
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// SecretMatches compares two secret hashes in constant time.
func SecretMatches(stored, submitted string) bool {
	if stored == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
