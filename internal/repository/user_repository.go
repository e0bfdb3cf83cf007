package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/beacon-attendance/internal/model"
    "github.com/iliyamo/beacon-attendance/internal/utils"
)

// UserRepo provides access to the 'users' table. Every user belongs
// to one organization; the attendance path consults Membership to
// verify the caller against the session's organization.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, email, password_hash, role, org_id, is_active, created_at, updated_at`

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, orgID uint64, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, password_hash, role, org_id) VALUES (?,?,?,?)",
        email, hash, role, orgID)
    if err != nil {
        var me *mysql.MySQLError
        if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT "+userCols+" FROM users WHERE email=? LIMIT 1",
        email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.OrgID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT "+userCols+" FROM users WHERE id=? LIMIT 1",
        id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.OrgID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// Membership verifies that the user is an active member of the given
// organization. It distinguishes three outcomes: ErrOrganizationMismatch
// when the user belongs elsewhere, ErrMembershipInactive when the
// account is deactivated, nil when the check passes. sql.ErrNoRows
// bubbles for unknown users.
func (r *UserRepo) Membership(ctx context.Context, userID, orgID uint64) error {
    var memberOrg uint64
    var active bool
    err := r.DB.QueryRowContext(ctx,
        "SELECT org_id, is_active FROM users WHERE id=? LIMIT 1",
        userID).Scan(&memberOrg, &active)
    if err != nil {
        return err
    }
    if memberOrg != orgID {
        return ErrOrganizationMismatch
    }
    if !active {
        return ErrMembershipInactive
    }
    return nil
}
