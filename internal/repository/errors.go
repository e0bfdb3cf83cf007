// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure scenarios
// without parsing free-text messages. Store and transport failures are
// returned as ordinary wrapped errors and must stay distinguishable
// from "no row matched" so monitoring can alert on sustained failure
// rates.
package repository

import "errors"

// ErrSessionNotFound is returned when no session exists for the given
// token. Handlers should translate this into an HTTP 404 response.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when the session exists but its
// broadcast window has elapsed. Attendance cannot be recorded against
// it and termination reports it distinctly from the terminated case.
var ErrSessionExpired = errors.New("session expired")

// ErrSessionNotStarted is returned by a terminate call on a session
// whose broadcast window has not opened yet. The row exists; callers
// must not report it as missing.
var ErrSessionNotStarted = errors.New("session not started")

// ErrAlreadyTerminated is returned by a terminate call on a session
// that already carries a termination marker. The second call is
// rejected, not silently accepted.
var ErrAlreadyTerminated = errors.New("session already terminated")

// ErrTokenCollision is returned by the conditional session insert when
// the token is already held by a currently active session. Callers
// regenerate and retry.
var ErrTokenCollision = errors.New("token already active")

// ErrAlreadyCheckedIn is returned when a member attempts a second
// check-in for the same session. The first record is immutable.
var ErrAlreadyCheckedIn = errors.New("already checked in")

// ErrOrganizationMismatch is returned when the caller is not a member
// of the organization that owns the session.
var ErrOrganizationMismatch = errors.New("organization mismatch")

// ErrMembershipInactive is returned when the caller's account exists
// but is deactivated; inactive members cannot record attendance.
var ErrMembershipInactive = errors.New("membership inactive")

// ErrOrgNotRegistered is returned when an organization row exists in
// the store but its slug or beacon code is absent from the compiled-in
// beacon registry. Sessions must never be created for such an
// organization: scanners could not resolve them.
var ErrOrgNotRegistered = errors.New("organization not in beacon registry")

// ErrEmailExists is returned when registering a user with an email
// already present in the users table.
var ErrEmailExists = errors.New("email already exists")
