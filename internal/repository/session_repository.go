package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/beacon-attendance/internal/beacon"
    "github.com/iliyamo/beacon-attendance/internal/model"
)

// SessionRepo is the authoritative store for broadcast sessions. Rows
// are append-only: creation inserts, termination and cleanup stamp the
// nullable termination columns, nothing is deleted. All timestamp
// comparisons happen in the database against UTC_TIMESTAMP() so that
// "active" means the same thing to every caller regardless of local
// clock skew. Check-then-act sequences (token uniqueness, terminate,
// cleanup) are single conditional statements, never a read followed by
// a separate write.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle for handlers that need to open a
// transaction spanning several repositories.
func (r *SessionRepo) DB() *sql.DB { return r.db }

// activeCond matches sessions that are currently resolvable by
// scanners: window open, no termination marker.
const activeCond = `terminated_at IS NULL AND starts_at <= UTC_TIMESTAMP() AND ends_at > UTC_TIMESTAMP()`

// sessionCols is the column list every scan in this file uses.
const sessionCols = `s.id, s.org_id, o.beacon_code, s.token, s.title, s.starts_at, s.ends_at,
                     s.created_by, s.terminated_at, s.terminated_by, s.termination_reason, s.created_at`

// TokenActive reports whether the token is held by a currently active
// session. Implements token.ActiveTokenChecker. The check is
// advisory; Create's conditional insert is the authority.
func (r *SessionRepo) TokenActive(ctx context.Context, tok string) (bool, error) {
    var one int
    err := r.db.QueryRowContext(ctx,
        `SELECT 1 FROM sessions WHERE token = ? AND `+activeCond+` LIMIT 1`, tok).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// Create inserts a session iff no currently active session holds the
// same token. The guard and the insert are one statement, so two
// concurrent creators drawing the same token cannot both succeed; the
// loser gets ErrTokenCollision and regenerates. The created row is
// read back to return authoritative timestamps.
func (r *SessionRepo) Create(ctx context.Context, orgID uint64, tok, title string, startsAt time.Time, ttl time.Duration, createdBy uint64) (*model.Session, error) {
    endsAt := startsAt.Add(ttl)
    const q = `INSERT INTO sessions (org_id, token, title, starts_at, ends_at, created_by)
               SELECT ?, ?, ?, ?, ?, ?
               FROM DUAL
               WHERE NOT EXISTS (
                   SELECT 1 FROM sessions
                   WHERE token = ? AND ` + activeCond + `
               )`
    res, err := r.db.ExecContext(ctx, q,
        orgID, tok, title,
        startsAt.UTC().Format("2006-01-02 15:04:05"),
        endsAt.UTC().Format("2006-01-02 15:04:05"),
        createdBy, tok)
    if err != nil {
        return nil, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return nil, err
    }
    if n == 0 {
        return nil, ErrTokenCollision
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.getByID(ctx, uint64(id))
}

// GetByToken returns the session with the exact token, in any state.
// ErrSessionNotFound is returned when no row matches.
func (r *SessionRepo) GetByToken(ctx context.Context, tok string) (*model.Session, error) {
    const q = `SELECT ` + sessionCols + `
               FROM sessions s
               JOIN organizations o ON o.id = s.org_id
               WHERE s.token = ?
               ORDER BY s.created_at DESC, s.id DESC
               LIMIT 1`
    s, err := r.scanRow(r.db.QueryRowContext(ctx, q, tok))
    if err == sql.ErrNoRows {
        return nil, ErrSessionNotFound
    }
    return s, err
}

// FindByBeacon resolves a (major, minor) observation to an active
// session of the given organization. The candidate set is restricted
// to that organization's active sessions, newest first, and the minor
// digest is recomputed per candidate — the codec is one-way, there is
// no reverse lookup. On an actual 16-bit digest collision between two
// concurrently active sessions the newest wins; operators keep
// concurrent sessions per organization low enough that the collision
// probability stays negligible. A nil session with nil error means
// nothing matched.
func (r *SessionRepo) FindByBeacon(ctx context.Context, major beacon.OrgCode, minor uint16, orgID uint64) (*model.Session, error) {
    const q = `SELECT ` + sessionCols + `
               FROM sessions s
               JOIN organizations o ON o.id = s.org_id
               WHERE s.org_id = ? AND o.beacon_code = ? AND ` + activePrefixed + `
               ORDER BY s.created_at DESC, s.id DESC`
    rows, err := r.db.QueryContext(ctx, q, orgID, uint16(major))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        s, err := r.scanRow(rows)
        if err != nil {
            return nil, err
        }
        if beacon.EncodeMinor(s.Token) == minor {
            return s, nil
        }
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return nil, nil
}

// activePrefixed is activeCond with the sessions alias used by joined
// queries.
const activePrefixed = `s.terminated_at IS NULL AND s.starts_at <= UTC_TIMESTAMP() AND s.ends_at > UTC_TIMESTAMP()`

// Terminate stamps manual termination on an active session. The guard
// and the update are one statement: of two concurrent terminators only
// one's write takes effect, the other re-reads and reports
// ErrAlreadyTerminated. ends_at is rewritten to the termination
// instant so the derived state flips immediately. Returns the seconds
// cut off the scheduled window (>= 0).
func (r *SessionRepo) Terminate(ctx context.Context, tok string, byUser uint64) (int64, error) {
    // Read the scheduled end first; the conditional update below is
    // the authority on who actually terminates.
    before, err := r.GetByToken(ctx, tok)
    if err != nil {
        return 0, err
    }
    const q = `UPDATE sessions
               SET terminated_at = UTC_TIMESTAMP(), ends_at = UTC_TIMESTAMP(),
                   terminated_by = ?, termination_reason = ?
               WHERE token = ? AND ` + activeCond
    res, err := r.db.ExecContext(ctx, q, byUser, model.TerminationManual, tok)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    if n == 0 {
        // Lost the race or the session was never active; re-read to
        // report the precise cause.
        after, err := r.GetByToken(ctx, tok)
        if err != nil {
            return 0, err
        }
        switch after.State(time.Now().UTC()) {
        case model.StateTerminated:
            return 0, ErrAlreadyTerminated
        case model.StateExpired:
            return 0, ErrSessionExpired
        case model.StateScheduled:
            return 0, ErrSessionNotStarted
        default:
            return 0, ErrSessionNotFound
        }
    }
    saved := int64(time.Until(before.EndsAt).Seconds())
    if saved < 0 {
        saved = 0
    }
    return saved, nil
}

// CleanupOrphaned stamps auto_cleanup termination on every session
// whose window elapsed without a termination marker. The single
// conditional UPDATE makes concurrent sweeps safe: each session
// transitions at most once and the second sweep affects zero rows.
// Returns the number of sessions transitioned by this call.
func (r *SessionRepo) CleanupOrphaned(ctx context.Context) (int64, error) {
    const q = `UPDATE sessions
               SET terminated_at = UTC_TIMESTAMP(), termination_reason = ?
               WHERE ends_at <= UTC_TIMESTAMP() AND terminated_at IS NULL`
    res, err := r.db.ExecContext(ctx, q, model.TerminationAutoCleanup)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// AttendeeCount returns the number of attendance records for the
// session.
func (r *SessionRepo) AttendeeCount(ctx context.Context, sessionID uint64) (uint64, error) {
    var n uint64
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM attendance_records WHERE session_id = ?`, sessionID).Scan(&n)
    return n, err
}

// ListActiveByOrg returns the organization's currently active
// sessions, newest first. Used by officer dashboards.
func (r *SessionRepo) ListActiveByOrg(ctx context.Context, orgID uint64) ([]model.Session, error) {
    const q = `SELECT ` + sessionCols + `
               FROM sessions s
               JOIN organizations o ON o.id = s.org_id
               WHERE s.org_id = ? AND ` + activePrefixed + `
               ORDER BY s.created_at DESC, s.id DESC`
    rows, err := r.db.QueryContext(ctx, q, orgID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Session
    for rows.Next() {
        s, err := r.scanRow(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

func (r *SessionRepo) getByID(ctx context.Context, id uint64) (*model.Session, error) {
    const q = `SELECT ` + sessionCols + `
               FROM sessions s
               JOIN organizations o ON o.id = s.org_id
               WHERE s.id = ?`
    s, err := r.scanRow(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrSessionNotFound
    }
    return s, err
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

func (r *SessionRepo) scanRow(row rowScanner) (*model.Session, error) {
    var s model.Session
    var code uint16
    var terminatedAt sql.NullTime
    var terminatedBy sql.NullInt64
    var reason sql.NullString
    if err := row.Scan(
        &s.ID, &s.OrgID, &code, &s.Token, &s.Title, &s.StartsAt, &s.EndsAt,
        &s.CreatedBy, &terminatedAt, &terminatedBy, &reason, &s.CreatedAt,
    ); err != nil {
        return nil, err
    }
    s.OrgCode = code
    if terminatedAt.Valid {
        ts := terminatedAt.Time
        s.TerminatedAt = &ts
    }
    if terminatedBy.Valid {
        by := uint64(terminatedBy.Int64)
        s.TerminatedBy = &by
    }
    if reason.Valid {
        rs := reason.String
        s.TerminationReason = &rs
    }
    return &s, nil
}
