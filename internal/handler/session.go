package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/beacon-attendance/internal/beacon"
    "github.com/iliyamo/beacon-attendance/internal/config"
    "github.com/iliyamo/beacon-attendance/internal/middleware"
    "github.com/iliyamo/beacon-attendance/internal/model"
    "github.com/iliyamo/beacon-attendance/internal/repository"
    "github.com/iliyamo/beacon-attendance/internal/token"
)

// SessionHandler exposes the session lifecycle: creation with a fresh
// token, resolution by token or by observed beacon fields, status,
// manual termination and the orphan sweep. All methods assume JWT
// authentication and role validation already ran in middleware.
type SessionHandler struct {
    Cfg      config.Config
    ID       beacon.Identifier
    Sessions *repository.SessionRepo
    Orgs     *repository.OrgRepo
    Tokens   *repository.TokenRepo
    Gen      *token.Generator
}

// NewSessionHandler constructs a SessionHandler. The identifier is the
// deployment constant every returned view advertises. All dependencies
// must be non-nil except Tokens, which only the cleanup endpoint uses.
func NewSessionHandler(cfg config.Config, id beacon.Identifier, sessions *repository.SessionRepo, orgs *repository.OrgRepo, tokens *repository.TokenRepo, gen *token.Generator) *SessionHandler {
    if sessions == nil || orgs == nil || gen == nil {
        panic("nil dependency passed to NewSessionHandler")
    }
    return &SessionHandler{Cfg: cfg, ID: id, Sessions: sessions, Orgs: orgs, Tokens: tokens, Gen: gen}
}

// sessionView is the JSON shape returned for a session. EventID is
// the session's store identifier; Identifier/Major/Minor are the
// complete advertisement a broadcaster puts on the air for it.
type sessionView struct {
    EventID    uint64 `json:"event_id"`
    Token      string `json:"token"`
    Title      string `json:"title"`
    OrgID      uint64 `json:"org_id"`
    Identifier string `json:"identifier"`
    Major      uint16 `json:"major"`
    Minor      uint16 `json:"minor"`
    StartsAt   string `json:"starts_at"`
    EndsAt     string `json:"ends_at"`
    State      string `json:"state"`
    CreatedAt  string `json:"created_at"`
}

func (h *SessionHandler) view(s *model.Session, now time.Time) sessionView {
    return sessionView{
        EventID:    s.ID,
        Token:      s.Token,
        Title:      s.Title,
        OrgID:      s.OrgID,
        Identifier: h.ID.String(),
        Major:      s.OrgCode,
        Minor:      beacon.EncodeMinor(s.Token),
        StartsAt:   s.StartsAt.UTC().Format(time.RFC3339),
        EndsAt:     s.EndsAt.UTC().Format(time.RFC3339),
        State:      string(s.State(now)),
        CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// Create handles POST /v1/sessions. The body carries a title, a TTL
// in seconds and an optional RFC3339 start time (default: now). The
// caller must be an officer; the session is created for the caller's
// organization. Token generation and the conditional insert are
// retried together: a store-level collision sends the loop back to the
// generator.
func (h *SessionHandler) Create(c echo.Context) error {
    userID, ok := middleware.CallerID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orgID, ok := middleware.CallerOrgID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var body struct {
        Title      string `json:"title"`
        TTLSeconds int64  `json:"ttl_seconds"`
        StartsAt   string `json:"starts_at"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Title = strings.TrimSpace(body.Title)
    if body.Title == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
    }
    ttl := time.Duration(body.TTLSeconds) * time.Second
    if ttl < h.Cfg.SessionTTLMin || ttl > h.Cfg.SessionTTLMax {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "error": "ttl_seconds out of range",
            "min":   int64(h.Cfg.SessionTTLMin.Seconds()),
            "max":   int64(h.Cfg.SessionTTLMax.Seconds()),
        })
    }
    startsAt := time.Now().UTC()
    if body.StartsAt != "" {
        t, err := time.Parse(time.RFC3339, body.StartsAt)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
        }
        startsAt = t.UTC()
    }

    ctx := c.Request().Context()
    org, err := h.Orgs.GetVerified(ctx, orgID)
    if err != nil {
        if errors.Is(err, repository.ErrOrgNotRegistered) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "organization not in beacon registry"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    // Generation and insert retry as one loop: the generator's own
    // collision check is advisory, the conditional insert decides.
    var sess *model.Session
    for attempt := 0; attempt < h.Cfg.TokenMaxAttempts; attempt++ {
        tok, err := h.Gen.Generate(ctx)
        if err != nil {
            if errors.Is(err, token.ErrGenerationExhausted) {
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "token generation exhausted"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
        }
        sess, err = h.Sessions.Create(ctx, org.ID, tok, body.Title, startsAt, ttl, userID)
        if err == nil {
            break
        }
        if errors.Is(err, repository.ErrTokenCollision) {
            sess = nil
            continue
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
    }
    if sess == nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "token generation exhausted"})
    }

    return c.JSON(http.StatusCreated, h.view(sess, time.Now().UTC()))
}

// Resolve handles GET /v1/sessions/:token. Exact string match, any
// lifecycle state.
func (h *SessionHandler) Resolve(c echo.Context) error {
    tok, ok := sanitizeToken(c.Param("token"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token"})
    }
    sess, err := h.Sessions.GetByToken(c.Request().Context(), tok)
    if err != nil {
        if errors.Is(err, repository.ErrSessionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, h.view(sess, time.Now().UTC()))
}

// Status handles GET /v1/sessions/:token/status: the derived state,
// seconds remaining in the window and the attendee count so far.
func (h *SessionHandler) Status(c echo.Context) error {
    tok, ok := sanitizeToken(c.Param("token"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token"})
    }
    ctx := c.Request().Context()
    sess, err := h.Sessions.GetByToken(ctx, tok)
    if err != nil {
        if errors.Is(err, repository.ErrSessionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    count, err := h.Sessions.AttendeeCount(ctx, sess.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    now := time.Now().UTC()
    return c.JSON(http.StatusOK, echo.Map{
        "state":                  string(sess.State(now)),
        "time_remaining_seconds": sess.Remaining(now),
        "attendee_count":         count,
    })
}

// FindByBeacon handles GET /v1/sessions/beacon?major=&minor=. The
// caller's organization narrows the candidate set; a major that does
// not belong to that organization resolves to nothing. 404 means "no
// active session matches", which scanners treat as an expected
// outcome.
func (h *SessionHandler) FindByBeacon(c echo.Context) error {
    orgID, ok := middleware.CallerOrgID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    major, err1 := strconv.ParseUint(c.QueryParam("major"), 10, 16)
    minor, err2 := strconv.ParseUint(c.QueryParam("minor"), 10, 16)
    if err1 != nil || err2 != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "major and minor must be 16-bit integers"})
    }
    sess, err := h.Sessions.FindByBeacon(c.Request().Context(), beacon.OrgCode(major), uint16(minor), orgID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if sess == nil {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no active session matches"})
    }
    return c.JSON(http.StatusOK, h.view(sess, time.Now().UTC()))
}

// Terminate handles DELETE /v1/sessions/:token. Officers may only
// terminate sessions of their own organization. A second call on the
// same session is rejected with 409, not silently accepted.
func (h *SessionHandler) Terminate(c echo.Context) error {
    userID, ok := middleware.CallerID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orgID, ok := middleware.CallerOrgID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tok, okTok := sanitizeToken(c.Param("token"))
    if !okTok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid token"})
    }
    ctx := c.Request().Context()
    sess, err := h.Sessions.GetByToken(ctx, tok)
    if err != nil {
        if errors.Is(err, repository.ErrSessionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if sess.OrgID != orgID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "organization mismatch"})
    }

    saved, err := h.Sessions.Terminate(ctx, tok, userID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrAlreadyTerminated):
            return c.JSON(http.StatusConflict, echo.Map{"error": "already terminated"})
        case errors.Is(err, repository.ErrSessionExpired):
            return c.JSON(http.StatusConflict, echo.Map{"error": "session expired"})
        case errors.Is(err, repository.ErrSessionNotStarted):
            return c.JSON(http.StatusConflict, echo.Map{"error": "session has not started"})
        case errors.Is(err, repository.ErrSessionNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"time_saved_seconds": saved})
}

// Cleanup handles POST /v1/sessions/cleanup: stamps auto_cleanup
// termination on every orphaned session. Safe to call repeatedly and
// from several devices at once; each orphan transitions exactly once.
// Expired refresh tokens are purged in the same sweep.
func (h *SessionHandler) Cleanup(c echo.Context) error {
    ctx := c.Request().Context()
    count, err := h.Sessions.CleanupOrphaned(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cleanup failed"})
    }
    if h.Tokens != nil {
        if _, err := h.Tokens.PurgeExpired(ctx, 30*24*time.Hour); err != nil {
            // Non-fatal; the session sweep already succeeded.
            c.Logger().Warnf("cleanup: purge refresh tokens: %v", err)
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// ListActive handles GET /v1/sessions: the caller organization's
// currently active sessions, newest first.
func (h *SessionHandler) ListActive(c echo.Context) error {
    orgID, ok := middleware.CallerOrgID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    sessions, err := h.Sessions.ListActiveByOrg(c.Request().Context(), orgID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    now := time.Now().UTC()
    views := make([]sessionView, 0, len(sessions))
    for i := range sessions {
        views = append(views, h.view(&sessions[i], now))
    }
    return c.JSON(http.StatusOK, echo.Map{"sessions": views})
}

// sanitizeToken normalizes a client-supplied token (trim, upper-case)
// and rejects anything that is not a well-formed token before it can
// reach the store.
func sanitizeToken(raw string) (string, bool) {
    tok := strings.ToUpper(strings.TrimSpace(raw))
    if !token.Valid(tok) {
        return "", false
    }
    return tok, true
}
