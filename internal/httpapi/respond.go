// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/storefront/storefront/pkg/errutil"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Message string `json:"message"`
}

// messageResponse is the body of successful requests that only confirm.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const internalErrorMessage = "Internal server error"

// statusFor maps an error code to an HTTP status. Codes outside the shared
// taxonomy are dependency failures.
func statusFor(code string) int {
	switch code {
	case errutil.CodeValidation, errutil.CodeInvalidOTP, errutil.CodeInvalidTicket,
		errutil.CodePrincipalNotFound:
		return http.StatusBadRequest
	case errutil.CodeInvalidCredentials, errutil.CodeUnauthorized:
		return http.StatusUnauthorized
	case errutil.CodeForbidden:
		return http.StatusForbidden
	case errutil.CodeNotFound:
		return http.StatusNotFound
	case errutil.CodeConflict:
		return http.StatusConflict
	case errutil.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fixedMessages replace the error text for classes whose details must not
// reach the client.
var fixedMessages = map[string]string{
	errutil.CodeInvalidCredentials: "Invalid credentials",
	errutil.CodeInvalidOTP:         "Invalid OTP",
	errutil.CodeInvalidTicket:      "Invalid or expired reset token",
	errutil.CodeUnauthorized:       "Invalid token",
	errutil.CodeForbidden:          "Forbidden",
	errutil.CodeRateLimited:        "Too many requests",
	errutil.CodeDeliveryFailed:     "Failed to send OTP",
}

// publicMessage picks the client-facing text for err.
func publicMessage(code string, status int, err error) string {
	if msg, ok := fixedMessages[code]; ok {
		return msg
	}
	if status >= http.StatusInternalServerError {
		return internalErrorMessage
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	//nolint:errcheck // client may have gone away; nothing useful to do
	json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Success: true, Message: message})
}

// writeError maps err to a status and a {"message"} body. Server-side
// failures are logged with their full context; the client sees a generic
// message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := errutil.Code(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
	}
	writeJSON(w, status, errorResponse{Message: publicMessage(code, status, err)})
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errutil.Validation("body", "request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errutil.Validation("body", "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return errutil.Validation("body", "request body is required")
		}
		return errutil.Validation("body", "invalid JSON payload")
	}
	return nil
}
