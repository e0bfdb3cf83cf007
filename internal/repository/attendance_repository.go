package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/beacon-attendance/internal/model"
)

// AttendanceRepo is the idempotent write path turning a resolved
// session plus calling member into a durable attendance fact. The
// attendance_records table carries UNIQUE(session_id, user_id); the
// whole dedupe guarantee rests on that key, not on any read performed
// before the insert.
type AttendanceRepo struct {
    db *sql.DB
}

// NewAttendanceRepo returns a new AttendanceRepo bound to the given
// database.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

// mysqlDuplicateEntry is the server error number for a unique-key
// violation.
const mysqlDuplicateEntry = 1062

// Add records one check-in. A repeat call from the same member trips
// the unique key and is reported as ErrAlreadyCheckedIn; the first
// record stays untouched. The inserted row is read back so callers
// get the store-assigned id and timestamp.
func (r *AttendanceRepo) Add(ctx context.Context, sessionID, userID, orgID uint64) (*model.AttendanceRecord, error) {
    const q = `INSERT INTO attendance_records (session_id, user_id, org_id, method)
               VALUES (?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, sessionID, userID, orgID, model.AttendanceMethod)
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
            return nil, ErrAlreadyCheckedIn
        }
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.getByID(ctx, uint64(id))
}

// GetBySessionAndUser returns the member's record for a session, or
// sql.ErrNoRows.
func (r *AttendanceRepo) GetBySessionAndUser(ctx context.Context, sessionID, userID uint64) (*model.AttendanceRecord, error) {
    const q = `SELECT id, session_id, user_id, org_id, method, recorded_at
               FROM attendance_records
               WHERE session_id = ? AND user_id = ?`
    return r.scan(r.db.QueryRowContext(ctx, q, sessionID, userID))
}

// ListBySession returns all records for a session, oldest first. Used
// by the officer attendance view.
func (r *AttendanceRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.AttendanceRecord, error) {
    const q = `SELECT id, session_id, user_id, org_id, method, recorded_at
               FROM attendance_records
               WHERE session_id = ?
               ORDER BY recorded_at ASC, id ASC`
    rows, err := r.db.QueryContext(ctx, q, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.AttendanceRecord
    for rows.Next() {
        var rec model.AttendanceRecord
        if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.OrgID, &rec.Method, &rec.RecordedAt); err != nil {
            return nil, err
        }
        out = append(out, rec)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

func (r *AttendanceRepo) getByID(ctx context.Context, id uint64) (*model.AttendanceRecord, error) {
    const q = `SELECT id, session_id, user_id, org_id, method, recorded_at
               FROM attendance_records WHERE id = ?`
    return r.scan(r.db.QueryRowContext(ctx, q, id))
}

func (r *AttendanceRepo) scan(row *sql.Row) (*model.AttendanceRecord, error) {
    var rec model.AttendanceRecord
    if err := row.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.OrgID, &rec.Method, &rec.RecordedAt); err != nil {
        return nil, err
    }
    return &rec, nil
}
