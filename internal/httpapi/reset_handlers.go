// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/pkg/errutil"
)

// otpValue accepts a code sent either as a JSON string or a JSON number.
type otpValue string

func (o *otpValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*o = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return oops.Wrap(err)
		}
		*o = otpValue(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return oops.Errorf("otp must be a string or a number")
		}
		*o = otpValue(n.String())
		return nil
	}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string   `json:"email"`
	OTP   otpValue `json:"otp"`
}

type verifyOTPResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ResetToken string `json:"resetToken"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	ResetToken  string `json:"resetToken"`
}

func (s *Server) handleForgotPassword(kind auth.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req forgotPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, s.logger, err)
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" {
			writeError(w, r, s.logger, errutil.Validation("email", "Email is required"))
			return
		}

		if err := s.deps.Resets.RequestReset(r.Context(), kind, req.Email); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		writeMessage(w, http.StatusOK, "OTP sent to your email")
	}
}

func (s *Server) handleVerifyOTP(kind auth.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyOTPRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, s.logger, err)
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || strings.TrimSpace(string(req.OTP)) == "" {
			writeError(w, r, s.logger, errutil.Validation("body", "Email and OTP are required"))
			return
		}

		ticket, err := s.deps.Resets.VerifyCode(r.Context(), kind, req.Email, string(req.OTP))
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, verifyOTPResponse{Success: true, Message: "OTP Verified", ResetToken: ticket})
	}
}

func (s *Server) handleResetPassword(kind auth.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, s.logger, err)
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		req.ResetToken = strings.TrimSpace(req.ResetToken)
		if req.Email == "" || req.NewPassword == "" || req.ResetToken == "" {
			writeError(w, r, s.logger, errutil.Validation("body", "All fields are required"))
			return
		}

		if err := s.deps.Resets.CompleteReset(r.Context(), kind, req.Email, req.ResetToken, req.NewPassword); err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		writeMessage(w, http.StatusOK, "Password updated successfully")
	}
}
