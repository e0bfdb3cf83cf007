package model

import "time"

// AttendanceMethod is the fixed method string recorded for check-ins
// produced by this protocol.  Other capture methods (manual entry,
// imports) would use their own values in the same column.
const AttendanceMethod = "beacon"

// AttendanceRecord represents one confirmed check-in as stored in the
// `attendance_records` table.  The table carries a UNIQUE key on
// (session_id, user_id): at most one record exists per member per
// session, and a second insert attempt is rejected, never merged.
//
// Fields:
//  ID         – primary key identifier.
//  SessionID  – session the member checked in to.
//  UserID     – member who checked in.
//  OrgID      – organization of the session (denormalized for reports).
//  Method     – capture method, always "beacon" for this subsystem.
//  RecordedAt – when the check-in was recorded.
type AttendanceRecord struct {
    ID         uint64    // attendance_records.id
    SessionID  uint64    // attendance_records.session_id
    UserID     uint64    // attendance_records.user_id
    OrgID      uint64    // attendance_records.org_id
    Method     string    // attendance_records.method
    RecordedAt time.Time // attendance_records.recorded_at
}
