// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/mamiland/mamiland/internal/auth"
)

// AdminCookieName is the cookie carrying the admin session token.
const AdminCookieName = "admin_token"

// newAdminCookie builds the http-only session cookie set on a
// successful admin login. Secure is off only for plain-HTTP
// development setups.
func newAdminCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     AdminCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// clearAdminCookie builds an expired cookie that removes the admin
// session from the browser.
func clearAdminCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
