// Package queue defines message payloads exchanged over the message broker.
package queue

// AttendanceRecordedEvent is published when a check-in is successfully
// recorded. It carries enough information for downstream consumers to
// log, notify, or feed analytics without querying the primary
// database. Session tokens are deliberately absent: they stay between
// the broadcaster, the scanner and the store.
type AttendanceRecordedEvent struct {
    AttendanceID uint64 `json:"attendance_id"`
    SessionID    uint64 `json:"session_id"`
    SessionTitle string `json:"session_title"`
    UserID       uint64 `json:"user_id"`
    OrgID        uint64 `json:"org_id"`
    OrgName      string `json:"org_name"`
    Method       string `json:"method"`
    RecordedAt   string `json:"recorded_at"`
}
