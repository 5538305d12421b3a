// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/pkg/errutil"
)

// dummyPassword seeds the hash that unknown-email logins are verified
// against, so response time does not reveal whether an account exists.
//
//nolint:gosec // G101: not a credential
const dummyPassword = "storefront-timing-equalizer"

// TokenService signs and verifies session tokens.
type TokenService interface {
	Issue(p *Principal) (string, time.Time, error)
	Verify(token string) (*Claims, error)
}

// Authenticator registers principals, checks credentials and mints tokens.
type Authenticator struct {
	principals PrincipalRepository
	hasher     PasswordHasher
	tokens     TokenService
	lockout    *LockoutTracker
	opts       serviceOptions

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(principals PrincipalRepository, hasher PasswordHasher, tokens TokenService, opts ...Option) (*Authenticator, error) {
	if principals == nil {
		return nil, oops.Errorf("principal repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	return &Authenticator{
		principals: principals,
		hasher:     hasher,
		tokens:     tokens,
		lockout:    NewLockoutTracker(),
		opts:       applyOptions(opts),
	}, nil
}

// Register creates a principal with a hashed password.
func (a *Authenticator) Register(ctx context.Context, kind Kind, email, password string, profile Profile) (*Principal, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, errutil.Validation("password", "password is required")
	}

	_, err := a.principals.GetByEmail(ctx, kind, email)
	switch {
	case err == nil:
		return nil, principalExists(kind, email)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "get principal by email").
			With("kind", string(kind)).
			Wrap(err)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		if errutil.Code(err) == errutil.CodeValidation {
			return nil, err
		}
		return nil, oops.Code("REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	p, err := NewPrincipal(kind, email, hash, profile)
	if err != nil {
		return nil, err
	}

	if err := a.principals.Create(ctx, p); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, principalExists(kind, email)
		}
		return nil, oops.Code("REGISTER_FAILED").
			With("operation", "create principal").
			With("kind", string(kind)).
			Wrap(err)
	}

	a.opts.events.RecordAuthEvent(kind, EventRegistered)
	return p, nil
}

func principalExists(kind Kind, email string) error {
	return oops.Code(errutil.CodeConflict).
		With("kind", string(kind)).
		With("email", email).
		Errorf("%s already exists", kind)
}

// Login verifies credentials and issues a session token.
// Unknown email, wrong password and a locked principal produce the same
// error, and all run a password verification so timing does not reveal
// which one happened. LockoutThreshold consecutive failures lock the
// principal for LockoutDuration.
func (a *Authenticator) Login(ctx context.Context, kind Kind, email, password string) (_ *Principal, _ string, err error) {
	ctx, span := startSpan(ctx, "auth.login", kind)
	defer func() { endSpan(span, err) }()

	if email == "" || password == "" {
		return nil, "", errutil.Validation("credentials", "email and password are required")
	}

	p, lookupErr := a.principals.GetByEmail(ctx, kind, email)

	var targetHash string
	exists := lookupErr == nil
	switch {
	case exists:
		targetHash = p.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = a.timingHash()
	default:
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get principal by email").
			With("kind", string(kind)).
			Wrap(lookupErr)
	}

	valid, verifyErr := a.hasher.Verify(password, targetHash)
	if verifyErr != nil && exists {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("principal_id", p.ID.String()).
			Wrap(verifyErr)
	}
	if !exists || !valid {
		if exists {
			failures := a.lockout.RecordFailure(kind, email, a.opts.now())
			if failures == LockoutThreshold {
				a.opts.logger.WarnContext(ctx, "principal locked after repeated login failures",
					"kind", string(kind),
					"principal_id", p.ID.String(),
					"failures", failures)
			}
		}
		a.opts.events.RecordAuthEvent(kind, EventLoginFailed)
		return nil, "", invalidCredentials()
	}

	// Checked after verification to keep timing constant.
	if a.lockout.Locked(kind, email, a.opts.now()) {
		a.opts.events.RecordAuthEvent(kind, EventLoginLocked)
		return nil, "", invalidCredentials()
	}
	a.lockout.RecordSuccess(kind, email)

	if a.hasher.NeedsUpgrade(p.PasswordHash) {
		a.upgradeHash(ctx, p, password)
	}

	token, _, err := a.tokens.Issue(p)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			With("principal_id", p.ID.String()).
			Wrap(err)
	}

	a.opts.events.RecordAuthEvent(kind, EventLoginSucceeded)
	return p, token, nil
}

func invalidCredentials() error {
	return oops.Code(errutil.CodeInvalidCredentials).Errorf("invalid email or password")
}

// timingHash returns a real hash from the configured hasher that no
// submitted password will match.
func (a *Authenticator) timingHash() string {
	a.dummyOnce.Do(func() {
		hash, err := a.hasher.Hash(dummyPassword)
		if err != nil {
			a.opts.logger.Warn("timing hash unavailable", "error", err)
			return
		}
		a.dummyHash = hash
	})
	return a.dummyHash
}

// upgradeHash rehashes a password whose stored hash uses stale parameters.
// Failures are logged; login succeeds regardless.
func (a *Authenticator) upgradeHash(ctx context.Context, p *Principal, password string) {
	newHash, err := a.hasher.Hash(password)
	if err == nil {
		err = a.principals.UpdatePassword(ctx, p.Kind, p.Email, newHash)
	}
	if err != nil {
		a.opts.logger.WarnContext(ctx, "best-effort hash upgrade failed",
			"operation", "upgrade_hash",
			"principal_id", p.ID.String(),
			"error", err)
		return
	}
	p.PasswordHash = newHash
}

// VerifyToken validates a session token and returns its claims.
func (a *Authenticator) VerifyToken(token string) (*Claims, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		if errutil.Code(err) == errutil.CodeUnauthorized {
			return nil, err
		}
		// An inner oops code would shadow ours, so the cause goes into context.
		return nil, oops.Code(errutil.CodeUnauthorized).
			With("cause", err.Error()).
			Errorf("invalid or expired token")
	}
	return claims, nil
}

// ChangePassword rehashes and stores a new password. The old password is
// not checked; callers authorize the change.
func (a *Authenticator) ChangePassword(ctx context.Context, kind Kind, email, newPassword string) error {
	if newPassword == "" {
		return errutil.Validation("newPassword", "new password is required")
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		if errutil.Code(err) == errutil.CodeValidation {
			return err
		}
		return oops.Code("PASSWORD_CHANGE_FAILED").With("operation", "hash password").Wrap(err)
	}

	if err := a.principals.UpdatePassword(ctx, kind, email, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(errutil.CodePrincipalNotFound).
				With("kind", string(kind)).
				Errorf("no %s with that email", kind)
		}
		return oops.Code("PASSWORD_CHANGE_FAILED").
			With("operation", "update password").
			With("kind", string(kind)).
			Wrap(err)
	}

	a.lockout.RecordSuccess(kind, email)
	a.opts.events.RecordAuthEvent(kind, EventPasswordChanged)
	return nil
}

// Profile returns the principal identified by a token subject.
func (a *Authenticator) Profile(ctx context.Context, kind Kind, id ulid.ULID) (*Principal, error) {
	p, err := a.principals.GetByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(errutil.CodeNotFound).
				With("kind", string(kind)).
				With("id", id.String()).
				Errorf("%s not found", kind)
		}
		return nil, oops.Code("PROFILE_LOOKUP_FAILED").
			With("id", id.String()).
			Wrap(err)
	}
	return p, nil
}
