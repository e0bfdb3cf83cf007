package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/beacon-attendance/internal/beacon"
    "github.com/iliyamo/beacon-attendance/internal/model"
)

// OrgRepo provides read access to the organizations table. The table
// mirrors the compiled-in beacon registry; GetVerified enforces the
// agreement so a drifted row can never put an unresolvable session on
// the air.
type OrgRepo struct {
    db *sql.DB
}

// NewOrgRepo returns a new OrgRepo bound to the given database.
func NewOrgRepo(db *sql.DB) *OrgRepo { return &OrgRepo{db: db} }

// GetByID returns an organization row, or sql.ErrNoRows.
func (r *OrgRepo) GetByID(ctx context.Context, id uint64) (*model.Organization, error) {
    const q = `SELECT id, slug, name, beacon_code, created_at FROM organizations WHERE id = ?`
    return r.scan(r.db.QueryRowContext(ctx, q, id))
}

// GetBySlug returns an organization row by its slug, or sql.ErrNoRows.
func (r *OrgRepo) GetBySlug(ctx context.Context, slug string) (*model.Organization, error) {
    const q = `SELECT id, slug, name, beacon_code, created_at FROM organizations WHERE slug = ?`
    return r.scan(r.db.QueryRowContext(ctx, q, slug))
}

// GetVerified returns the organization only when its stored beacon
// code matches the compiled-in registry. A row missing from the
// registry, or carrying a diverging code, yields ErrOrgNotRegistered.
func (r *OrgRepo) GetVerified(ctx context.Context, id uint64) (*model.Organization, error) {
    org, err := r.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    code, ok := beacon.CodeForOrg(org.Slug)
    if !ok || uint16(code) != org.BeaconCode {
        return nil, ErrOrgNotRegistered
    }
    return org, nil
}

func (r *OrgRepo) scan(row *sql.Row) (*model.Organization, error) {
    var o model.Organization
    if err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.BeaconCode, &o.CreatedAt); err != nil {
        return nil, err
    }
    return &o, nil
}
