// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

// Package httpapi exposes the authentication and profile operations
// over HTTP/JSON.
package httpapi
