package model

import "time"

// Organization represents a row in the `organizations` table.  The
// BeaconCode column mirrors the compile-time registry in the beacon
// package; the two must agree, and the session repository refuses to
// operate on organizations whose stored code diverges from the
// registry.
//
// Fields:
//  ID         – primary key identifier.
//  Slug       – stable short identifier (e.g. "robotics-club").
//  Name       – display name.
//  BeaconCode – 16-bit radio major code, unique per organization.
//  CreatedAt  – creation timestamp.
type Organization struct {
    ID         uint64    // organizations.id
    Slug       string    // organizations.slug
    Name       string    // organizations.name
    BeaconCode uint16    // organizations.beacon_code
    CreatedAt  time.Time // organizations.created_at
}
