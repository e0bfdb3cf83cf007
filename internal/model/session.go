package model

import "time"

// SessionState is the derived lifecycle state of a broadcast session.
// It is never stored; it is computed from the session's timestamps so
// that the stored row and the reported state cannot diverge.
type SessionState string

const (
    // StateScheduled means the session has been created but its
    // broadcast window has not opened yet (now < StartsAt).
    StateScheduled SessionState = "SCHEDULED"
    // StateActive means the broadcast window is open and the session
    // is resolvable by scanners (StartsAt <= now < EndsAt, no
    // termination marker).
    StateActive SessionState = "ACTIVE"
    // StateExpired means the window elapsed without an explicit
    // termination (now >= EndsAt, no termination marker).
    StateExpired SessionState = "EXPIRED"
    // StateTerminated means a termination marker was recorded,
    // regardless of the scheduled end time.
    StateTerminated SessionState = "TERMINATED"
)

// Termination reasons recorded on the sessions row.  "manual" is set by
// an explicit terminate call, "auto_cleanup" by the orphan sweeper.
const (
    TerminationManual      = "manual"
    TerminationAutoCleanup = "auto_cleanup"
)

// Session represents one broadcast window as stored in the `sessions`
// table.  Rows are append-only: termination stamps the nullable
// termination columns, nothing is ever deleted.
//
// Fields:
//  ID                – primary key identifier.
//  OrgID             – organization that owns the session.
//  OrgCode           – 16-bit beacon major code of that organization.
//  Token             – 12-character session token; unique among
//                      currently active sessions.
//  Title             – human-readable session title.
//  StartsAt          – when the broadcast window opens.
//  EndsAt            – when the window closes (terminate rewrites this
//                      to the termination instant).
//  CreatedBy         – user who created the session.
//  TerminatedAt      – when termination was recorded (nil if never).
//  TerminatedBy      – user who terminated, nil for auto cleanup.
//  TerminationReason – "manual" or "auto_cleanup", nil if untouched.
//  CreatedAt         – creation timestamp.
type Session struct {
    ID                uint64     // sessions.id
    OrgID             uint64     // sessions.org_id
    OrgCode           uint16     // organizations.beacon_code (joined)
    Token             string     // sessions.token
    Title             string     // sessions.title
    StartsAt          time.Time  // sessions.starts_at
    EndsAt            time.Time  // sessions.ends_at
    CreatedBy         uint64     // sessions.created_by
    TerminatedAt      *time.Time // sessions.terminated_at (nullable)
    TerminatedBy      *uint64    // sessions.terminated_by (nullable)
    TerminationReason *string    // sessions.termination_reason (nullable)
    CreatedAt         time.Time  // sessions.created_at
}

// State derives the lifecycle state at the given instant.  Exactly one
// state holds for any combination of timestamps: a termination marker
// wins over everything, then the window boundaries decide.
func (s *Session) State(now time.Time) SessionState {
    if s.TerminatedAt != nil {
        return StateTerminated
    }
    if now.Before(s.StartsAt) {
        return StateScheduled
    }
    if now.Before(s.EndsAt) {
        return StateActive
    }
    return StateExpired
}

// Remaining returns the seconds left in the broadcast window, or zero
// for any session that is not active at the given instant.
func (s *Session) Remaining(now time.Time) int64 {
    if s.State(now) != StateActive {
        return 0
    }
    return int64(s.EndsAt.Sub(now).Seconds())
}
