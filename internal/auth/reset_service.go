// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/storefront/storefront/pkg/errutil"
)

// ResetSubject is the subject line of reset code messages.
const ResetSubject = "Password Reset OTP"

// Notifier delivers a message to an email address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PasswordChanger replaces a principal's password.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, kind Kind, email, newPassword string) error
}

// ResetConfig tunes the reset flow. Zero fields take defaults.
type ResetConfig struct {
	CodeTTL         time.Duration
	TicketTTL       time.Duration
	MaxAttempts     int
	DeliveryTimeout time.Duration
}

func (c ResetConfig) withDefaults() ResetConfig {
	if c.CodeTTL <= 0 {
		c.CodeTTL = DefaultCodeTTL
	}
	if c.TicketTTL <= 0 {
		c.TicketTTL = DefaultTicketTTL
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = DefaultDeliveryWait
	}
	return c
}

// ResetCoordinator runs the emailed one-time code flow:
// RequestReset issues a code, VerifyCode trades it for a reset ticket, and
// CompleteReset trades the ticket for a password change.
type ResetCoordinator struct {
	principals PrincipalRepository
	store      ResetStore
	notifier   Notifier
	passwords  PasswordChanger
	cfg        ResetConfig
	opts       serviceOptions
}

// NewResetCoordinator creates a new ResetCoordinator.
func NewResetCoordinator(
	principals PrincipalRepository,
	store ResetStore,
	notifier Notifier,
	passwords PasswordChanger,
	cfg ResetConfig,
	opts ...Option,
) (*ResetCoordinator, error) {
	if principals == nil {
		return nil, oops.Errorf("principal repository is required")
	}
	if store == nil {
		return nil, oops.Errorf("reset store is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if passwords == nil {
		return nil, oops.Errorf("password changer is required")
	}
	return &ResetCoordinator{
		principals: principals,
		store:      store,
		notifier:   notifier,
		passwords:  passwords,
		cfg:        cfg.withDefaults(),
		opts:       applyOptions(opts),
	}, nil
}

// Config returns the effective configuration.
func (c *ResetCoordinator) Config() ResetConfig {
	return c.cfg
}

// RequestReset issues a fresh code for the address, replacing any earlier
// one, and sends it. If delivery fails the stored code stays valid.
// Unknown addresses succeed without sending anything.
func (c *ResetCoordinator) RequestReset(ctx context.Context, kind Kind, email string) (err error) {
	ctx, span := startSpan(ctx, "reset.request", kind)
	defer func() { endSpan(span, err) }()

	if email == "" {
		return errutil.Validation("email", "email is required")
	}

	if _, err := c.principals.GetByEmail(ctx, kind, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.opts.logger.DebugContext(ctx, "reset requested for unknown address", "kind", string(kind))
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get principal by email").
			With("kind", string(kind)).
			Wrap(err)
	}

	code, err := GenerateCode()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").With("operation", "generate code").Wrap(err)
	}

	key := ResetKey{Kind: kind, Email: email, Purpose: PurposeCode}
	now := c.opts.now()
	if err := c.store.Save(ctx, &PendingReset{
		Key:        key,
		SecretHash: HashSecret(key, code),
		ExpiresAt:  now.Add(c.cfg.CodeTTL),
		CreatedAt:  now,
	}); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "save code").
			With("kind", string(kind)).
			Wrap(err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.DeliveryTimeout)
	defer cancel()

	body := fmt.Sprintf("Your OTP is %s. It is valid for %d minutes.", code, int(c.cfg.CodeTTL/time.Minute))
	if err := c.notifier.Send(sendCtx, email, ResetSubject, body); err != nil {
		c.opts.events.RecordResetEvent(kind, EventCodeDeliveryFailed)
		// The provider's own code would shadow ours, so its text goes into context.
		return oops.Code(errutil.CodeDeliveryFailed).
			With("kind", string(kind)).
			With("cause", err.Error()).
			Errorf("failed to deliver reset code")
	}

	c.opts.events.RecordResetEvent(kind, EventCodeIssued)
	return nil
}

// VerifyCode checks a submitted code and, on a match, consumes it and
// returns a single-use reset ticket. The code may arrive as "123456" or as
// the number 123456. A mismatch leaves the pending code in place.
func (c *ResetCoordinator) VerifyCode(ctx context.Context, kind Kind, email, submitted string) (_ string, err error) {
	ctx, span := startSpan(ctx, "reset.verify", kind)
	defer func() { endSpan(span, err) }()

	if email == "" {
		return "", errutil.Validation("email", "email is required")
	}
	if strings.TrimSpace(submitted) == "" {
		return "", errutil.Validation("otp", "otp is required")
	}

	code, ok := NormalizeCode(submitted)
	if !ok {
		c.opts.events.RecordResetEvent(kind, EventCodeRejected)
		return "", invalidOTP()
	}

	key := ResetKey{Kind: kind, Email: email, Purpose: PurposeCode}
	if err := c.store.Consume(ctx, key, HashSecret(key, code), c.opts.now(), c.cfg.MaxAttempts); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrSecretMismatch) {
			c.opts.events.RecordResetEvent(kind, EventCodeRejected)
			return "", invalidOTP()
		}
		return "", oops.Code("RESET_VERIFY_FAILED").
			With("operation", "consume code").
			With("kind", string(kind)).
			Wrap(err)
	}

	ticket, err := GenerateResetTicket()
	if err != nil {
		return "", oops.Code("RESET_VERIFY_FAILED").With("operation", "generate ticket").Wrap(err)
	}

	ticketKey := ResetKey{Kind: kind, Email: email, Purpose: PurposeTicket}
	now := c.opts.now()
	if err := c.store.Save(ctx, &PendingReset{
		Key:        ticketKey,
		SecretHash: HashSecret(ticketKey, ticket),
		ExpiresAt:  now.Add(c.cfg.TicketTTL),
		CreatedAt:  now,
	}); err != nil {
		return "", oops.Code("RESET_VERIFY_FAILED").
			With("operation", "save ticket").
			With("kind", string(kind)).
			Wrap(err)
	}

	c.opts.events.RecordResetEvent(kind, EventCodeVerified)
	return ticket, nil
}

func invalidOTP() error {
	return oops.Code(errutil.CodeInvalidOTP).Errorf("invalid or expired OTP")
}

// CompleteReset consumes a reset ticket and sets the new password.
func (c *ResetCoordinator) CompleteReset(ctx context.Context, kind Kind, email, ticket, newPassword string) (err error) {
	ctx, span := startSpan(ctx, "reset.complete", kind)
	defer func() { endSpan(span, err) }()

	if email == "" {
		return errutil.Validation("email", "email is required")
	}
	if newPassword == "" {
		return errutil.Validation("newPassword", "new password is required")
	}
	if ticket == "" {
		return errutil.Validation("resetToken", "reset token is required")
	}
	if len(newPassword) > MaxPasswordBytes {
		return errutil.Validation("newPassword", "password must be at most %d bytes", MaxPasswordBytes)
	}

	key := ResetKey{Kind: kind, Email: email, Purpose: PurposeTicket}
	if err := c.store.Consume(ctx, key, HashSecret(key, ticket), c.opts.now(), c.cfg.MaxAttempts); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrSecretMismatch) {
			c.opts.events.RecordResetEvent(kind, EventTicketRejected)
			return oops.Code(errutil.CodeInvalidTicket).Errorf("reset token is invalid or expired")
		}
		return oops.Code("RESET_COMPLETE_FAILED").
			With("operation", "consume ticket").
			With("kind", string(kind)).
			Wrap(err)
	}

	if err := c.passwords.ChangePassword(ctx, kind, email, newPassword); err != nil {
		return oops.With("operation", "change password").Wrap(err)
	}

	c.opts.events.RecordResetEvent(kind, EventResetCompleted)
	return nil
}

// SweepExpired removes expired codes and tickets from the store.
func (c *ResetCoordinator) SweepExpired(ctx context.Context) (int64, error) {
	n, err := c.store.DeleteExpired(ctx, c.opts.now())
	if err != nil {
		return 0, oops.Code("RESET_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}
