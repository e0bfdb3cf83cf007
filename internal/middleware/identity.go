package middleware

// identity.go defines helper functions shared across middleware files.
// They read the identity claims JWTAuth stored in the Echo context;
// handlers use them to resolve the calling user and organization.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// CallerID returns the authenticated user's ID from context, or false
// when the request carries no usable subject claim. JWT numeric
// claims decode as float64; string subjects are accepted too.
func CallerID(c echo.Context) (uint64, bool) {
    return claimUint(c, "user_id")
}

// CallerOrgID returns the authenticated user's organization ID from
// context.
func CallerOrgID(c echo.Context) (uint64, bool) {
    return claimUint(c, "org_id")
}

func claimUint(c echo.Context, key string) (uint64, bool) {
    switch v := c.Get(key).(type) {
    case float64:
        if v < 0 {
            return 0, false
        }
        return uint64(v), true
    case string:
        n, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            return 0, false
        }
        return n, true
    default:
        return 0, false
    }
}

// callerKey renders the caller's identity for rate-limit keys; "anon"
// when unauthenticated.
func callerKey(c echo.Context) string {
    if id, ok := CallerID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
