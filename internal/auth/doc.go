// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

// Package auth implements the access-control core: credential
// verification, signed session tokens, single-use onboarding codes,
// and administrator bootstrap.
package auth
