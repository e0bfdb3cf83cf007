package beacon

import (
    "time"

    "github.com/google/uuid"
)

// DefaultIdentifier is the deployment-wide 128-bit identifier carried
// by every frame, identical for all organizations.  Scanners filter on
// it before anything else.  Deployments can override it via
// BEACON_IDENTIFIER, but broadcaster and scanner fleets must agree.
const DefaultIdentifier = "8ec76ea3-6668-48da-9866-75784f3a1734"

// Identifier is the parsed 128-bit deployment constant.
type Identifier = uuid.UUID

// ParseIdentifier parses the canonical UUID text form of a deployment
// identifier.
func ParseIdentifier(s string) (Identifier, error) {
    return uuid.Parse(s)
}

// Frame is one observed radio advertisement.  It is an ephemeral
// value: frames are never persisted, only matched against the store.
// SignalStrength is a proximity hint and plays no part in matching.
type Frame struct {
    Identifier     Identifier
    Major          OrgCode
    Minor          uint16
    SignalStrength int
    ObservedAt     time.Time
}

// Advertisement is the outbound counterpart of Frame: the three fields
// a broadcaster puts on the air for one session.
type Advertisement struct {
    Identifier Identifier
    Major      OrgCode
    Minor      uint16
}

// NewAdvertisement builds the advertisement for a session token under
// the given organization code.
func NewAdvertisement(id Identifier, major OrgCode, token string) Advertisement {
    return Advertisement{Identifier: id, Major: major, Minor: EncodeMinor(token)}
}
