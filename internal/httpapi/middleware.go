// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/pkg/errutil"
)

// RequestObserver receives one call per completed request.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// recoverer turns a panic into a logged 500 with a JSON body.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic serving request",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Message: internalErrorMessage})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger logs each request and feeds the observer. The route label is
// the chi pattern so ids in paths do not explode metric cardinality.
func requestLogger(logger *slog.Logger, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()))

			if observer != nil {
				observer.ObserveRequest(route, status, elapsed)
			}
		})
	}
}

// corsPolicy answers cross-origin requests whose Origin matches one of the
// configured glob patterns, for example "https://*.example.com".
type corsPolicy struct {
	patterns []glob.Glob
}

func newCORSPolicy(origins []string) (*corsPolicy, error) {
	p := &corsPolicy{}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		g, err := glob.Compile(origin)
		if err != nil {
			return nil, oops.Code("CORS_PATTERN_INVALID").
				With("pattern", origin).
				Wrap(err)
		}
		p.patterns = append(p.patterns, g)
	}
	return p, nil
}

func (p *corsPolicy) allowed(origin string) bool {
	for _, g := range p.patterns {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func (p *corsPolicy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || len(p.patterns) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Origin")
		if !p.allowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claimsKey struct{}

// claimsFrom returns the verified claims stored by requireKind.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// requireKind rejects requests without a valid session token with 401, and
// tokens of another principal kind with 403.
func (s *Server) requireKind(kind auth.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "No token provided"})
				return
			}

			claims, err := s.deps.Auth.VerifyToken(token)
			if err != nil {
				if errutil.Code(err) != errutil.CodeUnauthorized {
					// An inner code would shadow ours, so the cause goes into context.
					err = oops.Code(errutil.CodeUnauthorized).
						With("cause", err.Error()).
						Errorf("invalid or expired token")
				}
				writeError(w, r, s.logger, err)
				return
			}
			if claims.Kind != kind {
				writeError(w, r, s.logger, oops.Code(errutil.CodeForbidden).
					With("required_kind", string(kind)).
					With("token_kind", string(claims.Kind)).
					Errorf("token kind not allowed"))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
