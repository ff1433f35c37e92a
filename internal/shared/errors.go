package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or malformed required fields.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateName indicates a unique-name collision among live records.
	ErrDuplicateName = errors.New("name already in use")
	// ErrInvalidGrant indicates a grant referencing an unknown resource or action.
	ErrInvalidGrant = errors.New("grant not allowed by permission catalog")
	// ErrProtectedRole indicates a mutation forbidden on a default role.
	ErrProtectedRole = errors.New("role is protected")
	// ErrRoleInUse indicates the role is still assigned to at least one admin.
	ErrRoleInUse = errors.New("role is assigned to admins")
	// ErrWeakCredential indicates a password below the minimum length.
	ErrWeakCredential = errors.New("credential too weak")
	// ErrSelfDelete indicates an admin attempting to delete their own account.
	ErrSelfDelete = errors.New("cannot delete own account")
	// ErrStaleVersion indicates an update carrying an outdated version.
	ErrStaleVersion = errors.New("record was modified concurrently")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
