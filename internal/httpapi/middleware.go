// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mamiland/mamiland/internal/auth"
	"github.com/mamiland/mamiland/internal/observability"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	claimsKey    contextKey = "claims"
)

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ClaimsFromContext returns the verified session claims, or nil when
// the request carried no valid token.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestID assigns each request a ULID and echoes it back in the
// X-Request-Id header.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// withLogging logs one line per completed request and counts it in the
// request metric. The route label comes from the mux pattern, which the
// mux fills in on r during dispatch, so the label set stays bounded.
func withLogging(logger *slog.Logger, metrics *observability.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		if metrics != nil {
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// bearerToken extracts the token from the Authorization header or,
// failing that, the admin session cookie.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}
	if cookie, err := r.Cookie(AdminCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// requireRole wraps a handler, verifying the session token and
// enforcing the given role before the handler runs.
func (h *Handler) requireRole(role auth.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, h.logger, oops.Code("AUTH_UNAUTHENTICATED").Errorf("authentication required"))
			return
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}

		if claims.Role != role {
			writeError(w, h.logger, oops.Code("AUTH_FORBIDDEN").
				With("required_role", string(role)).
				Errorf("insufficient privileges"))
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}
