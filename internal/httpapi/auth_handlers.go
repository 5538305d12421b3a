// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/pkg/errutil"
)

type registerRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	User    *userView `json:"user,omitempty"`
}

type addressRequest struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

type addressView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

func newUserView(p *auth.Principal) *userView {
	return &userView{ID: p.ID.String(), FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, s.logger, errutil.Validation("body", "All fields are required"))
		return
	}

	_, err := s.deps.Auth.Register(r.Context(), auth.KindUser, req.Email, req.Password, auth.Profile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errutil.Code(err) == errutil.CodeConflict {
			writeJSON(w, http.StatusConflict, errorResponse{Message: "User already exists"})
			return
		}
		writeError(w, r, s.logger, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) handleLogin(kind auth.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, s.logger, err)
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			writeError(w, r, s.logger, errutil.Validation("body", "All fields are required"))
			return
		}

		p, token, err := s.deps.Auth.Login(r.Context(), kind, req.Email, req.Password)
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}

		resp := loginResponse{Success: true, Token: token}
		if kind == auth.KindUser {
			resp.User = newUserView(p)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	id, err := claims.SubjectID()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	p, err := s.deps.Auth.Profile(r.Context(), claims.Kind, id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(p))
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	id, err := claims.SubjectID()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	addrs, err := s.deps.Addresses.List(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	views := make([]addressView, 0, len(addrs))
	for _, a := range addrs {
		views = append(views, addressView{
			ID: a.ID.String(), UserID: a.UserID.String(), Name: a.Name, Details: a.Details, CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAddAddress(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	id, err := claims.SubjectID()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var req addressRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	a, err := s.deps.Addresses.Add(r.Context(), id, req.Name, req.Details)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, addressView{
		ID: a.ID.String(), UserID: a.UserID.String(), Name: a.Name, Details: a.Details, CreatedAt: a.CreatedAt,
	})
}
