// Package beacon owns the fixed-format radio frame shared by every
// broadcaster and scanner in the deployment: a 128-bit deployment
// identifier plus two 16-bit fields carrying the organization code
// (major) and the session-token digest (minor).  Everything in this
// package is pure computation; no radio or network I/O happens here.
package beacon

// EncodeMinor maps a session token to the 16-bit minor field of the
// radio frame.  For each byte of the token, in left-to-right order:
//
//	h = (h*31 - h + byte) mod 2^16
//
// starting from h = 0.  Every broadcaster and scanner must produce
// bit-identical output for the same token; the frozen vector table in
// codec_test.go is the cross-implementation contract.  The mapping is
// one-way on purpose — resolution recomputes the digest from candidate
// tokens and compares, there is no decode.
func EncodeMinor(token string) uint16 {
    var h uint32
    for i := 0; i < len(token); i++ {
        h = (h*31 - h + uint32(token[i])) & 0xFFFF
    }
    return uint16(h)
}

// OrgCode is the 16-bit organization code broadcast in the major
// field.  Zero is reserved and never assigned.
type OrgCode uint16

// orgRegistry is the closed registry of organization slugs to major
// codes.  Both sides of the radio link compile this table in; adding
// an organization means adding a row here and the matching
// organizations row in the store.  Codes are never reused.
var orgRegistry = map[string]OrgCode{
    "robotics-club":    1,
    "debate-society":   2,
    "chess-circle":     3,
    "astronomy-guild":  4,
    "cycling-collective": 5,
}

// CodeForOrg returns the major code for an organization slug.  The
// second return is false for slugs outside the registry; callers must
// treat that as a hard error, not guess a code from other metadata.
func CodeForOrg(slug string) (OrgCode, bool) {
    code, ok := orgRegistry[slug]
    return code, ok
}

// KnownCode reports whether a major value observed over the radio
// belongs to any registered organization.
func KnownCode(code OrgCode) bool {
    for _, c := range orgRegistry {
        if c == code {
            return true
        }
    }
    return false
}

// RegisteredOrgs returns the slugs in the registry.  Used by startup
// checks that verify the store and the registry agree.
func RegisteredOrgs() []string {
    out := make([]string, 0, len(orgRegistry))
    for slug := range orgRegistry {
        out = append(out, slug)
    }
    return out
}
