package repository

import (
    "context"
    "errors"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
)

func newAttendanceMock(t *testing.T) (*AttendanceRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    t.Cleanup(func() { db.Close() })
    return NewAttendanceRepo(db), mock
}

func TestAddDuplicateMapsToAlreadyCheckedIn(t *testing.T) {
    repo, mock := newAttendanceMock(t)

    // The UNIQUE(session_id, user_id) key is the arbiter: a repeat
    // insert from the same member trips server error 1062 and must
    // surface as the sentinel, not a raw driver error.
    mock.ExpectExec(`INSERT INTO attendance_records`).
        WithArgs(int64(7), int64(9), int64(1), "beacon").
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

    _, err := repo.Add(context.Background(), 7, 9, 1)
    if !errors.Is(err, ErrAlreadyCheckedIn) {
        t.Fatalf("err = %v, want ErrAlreadyCheckedIn", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatal(err)
    }
}

func TestAddOtherErrorNotMasked(t *testing.T) {
    repo, mock := newAttendanceMock(t)

    // A store failure must stay distinguishable from the duplicate
    // case so callers retry instead of telling the member they already
    // checked in.
    mock.ExpectExec(`INSERT INTO attendance_records`).
        WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})

    _, err := repo.Add(context.Background(), 7, 9, 1)
    if err == nil || errors.Is(err, ErrAlreadyCheckedIn) {
        t.Fatalf("err = %v, want a non-sentinel store error", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatal(err)
    }
}

func TestAddReadsBackStoredRow(t *testing.T) {
    repo, mock := newAttendanceMock(t)
    recordedAt := time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC)

    mock.ExpectExec(`INSERT INTO attendance_records`).
        WithArgs(int64(7), int64(9), int64(1), "beacon").
        WillReturnResult(sqlmock.NewResult(42, 1))
    mock.ExpectQuery(`(?s)SELECT id, session_id, user_id, org_id, method, recorded_at.*FROM attendance_records WHERE id = \?`).
        WithArgs(int64(42)).
        WillReturnRows(sqlmock.NewRows(
            []string{"id", "session_id", "user_id", "org_id", "method", "recorded_at"},
        ).AddRow(int64(42), int64(7), int64(9), int64(1), "beacon", recordedAt))

    rec, err := repo.Add(context.Background(), 7, 9, 1)
    if err != nil {
        t.Fatalf("Add: %v", err)
    }
    if rec.ID != 42 || rec.SessionID != 7 || rec.UserID != 9 || rec.Method != "beacon" {
        t.Fatalf("unexpected record: %+v", rec)
    }
    if !rec.RecordedAt.Equal(recordedAt) {
        t.Fatalf("recorded_at = %v, want %v", rec.RecordedAt, recordedAt)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Fatal(err)
    }
}
