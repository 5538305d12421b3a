// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package errutil

import "github.com/samber/oops"

// Error classes shared across packages. The HTTP layer maps each class to a
// status code; any code not listed here is treated as a dependency failure.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeConflict           = "PRINCIPAL_EXISTS"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidOTP         = "OTP_INVALID"
	CodeInvalidTicket      = "RESET_TICKET_INVALID"
	CodeUnauthorized       = "TOKEN_INVALID"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodePrincipalNotFound  = "PRINCIPAL_NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeDeliveryFailed     = "DELIVERY_FAILED"
)

// Code returns the oops error code carried by err, or "" when err is not an
// oops error or has no code.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(oopsErr.Code()).(string)
	return code
}

// Validation creates a VALIDATION_FAILED error naming the offending field.
func Validation(field, format string, args ...any) error {
	return oops.Code(CodeValidation).
		With("field", field).
		Errorf(format, args...)
}
