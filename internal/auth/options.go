// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"log/slog"
	"time"
)

// EventRecorder receives authentication and reset outcomes, typically to
// feed metrics. Implementations must be safe for concurrent use.
type EventRecorder interface {
	RecordAuthEvent(kind Kind, event string)
	RecordResetEvent(kind Kind, event string)
}

// Event names passed to EventRecorder.
const (
	EventRegistered         = "registered"
	EventLoginSucceeded     = "login_succeeded"
	EventLoginFailed        = "login_failed"
	EventLoginLocked        = "login_locked"
	EventPasswordChanged    = "password_changed"
	EventCodeIssued         = "code_issued"
	EventCodeDeliveryFailed = "code_delivery_failed"
	EventCodeVerified       = "code_verified"
	EventCodeRejected       = "code_rejected"
	EventResetCompleted     = "reset_completed"
	EventTicketRejected     = "ticket_rejected"
)

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(Kind, string)  {}
func (nopRecorder) RecordResetEvent(Kind, string) {}

// serviceOptions are shared by Authenticator and ResetCoordinator.
type serviceOptions struct {
	logger *slog.Logger
	events EventRecorder
	now    func() time.Time
}

// Option configures a service.
type Option func(*serviceOptions)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEvents sets the EventRecorder.
func WithEvents(events EventRecorder) Option {
	return func(o *serviceOptions) {
		if events != nil {
			o.events = events
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) serviceOptions {
	o := serviceOptions{
		logger: slog.Default(),
		events: nopRecorder{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
