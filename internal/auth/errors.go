// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint. Repositories wrap it with a code identifying the field.
var ErrDuplicate = errors.New("duplicate")

// ErrSchemaMissing is returned by the admin repository when the admins
// table does not exist yet. The gateway reacts by running bootstrap.
var ErrSchemaMissing = errors.New("schema missing")
