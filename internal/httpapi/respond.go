// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mamiland/mamiland/pkg/errutil"
)

// errorResponse is the uniform JSON error body.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusForCode maps domain error codes onto HTTP statuses. Unknown
// codes are treated as internal failures.
func statusForCode(code string) int {
	switch code {
	case "AUTH_VALIDATION_INPUT",
		"AUTH_VALIDATION_USERNAME",
		"AUTH_VALIDATION_EMAIL",
		"AUTH_VALIDATION_PASSWORD",
		"AUTH_VALIDATION_CODE",
		"PROFILE_VALIDATION":
		return http.StatusBadRequest
	case "AUTH_INVALID_CREDENTIALS",
		"AUTH_UNAUTHENTICATED",
		"TOKEN_INVALID",
		"ACCESS_CODE_INVALID",
		"ACCESS_CODE_USED",
		"ACCESS_CODE_EXPIRED":
		return http.StatusUnauthorized
	case "AUTH_FORBIDDEN":
		return http.StatusForbidden
	case "USER_NOT_FOUND", "ADMIN_NOT_FOUND", "ACCESS_CODE_NOT_FOUND":
		return http.StatusNotFound
	case "USER_DUPLICATE_USERNAME", "USER_DUPLICATE_EMAIL", "ADMIN_DUPLICATE_USERNAME":
		return http.StatusConflict
	case "AUTH_ACCOUNT_LOCKED":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("write response body", "error", err)
	}
}

// writeError renders err as a JSON error response. Internal failures
// get a generic message; the detail goes to the log only.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := errutil.Code(err)
	status := statusForCode(code)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		errutil.LogError(logger, "request failed", err)
		msg = "internal server error"
		code = ""
	}

	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
