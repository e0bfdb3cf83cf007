package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/beacon-attendance/internal/middleware"
    "github.com/iliyamo/beacon-attendance/internal/model"
    "github.com/iliyamo/beacon-attendance/internal/queue"
    "github.com/iliyamo/beacon-attendance/internal/repository"
    queue_publisher "github.com/iliyamo/beacon-attendance/internal/service"
)

// AttendanceHandler records check-ins. The token in the request body
// is the only proof of proximity the server ever sees: resolving it to
// an active session of the caller's organization is the entire
// validation.
type AttendanceHandler struct {
    Sessions   *repository.SessionRepo
    Attendance *repository.AttendanceRepo
    Users      *repository.UserRepo
    Orgs       *repository.OrgRepo
}

func NewAttendanceHandler(s *repository.SessionRepo, a *repository.AttendanceRepo, u *repository.UserRepo, o *repository.OrgRepo) *AttendanceHandler {
    return &AttendanceHandler{Sessions: s, Attendance: a, Users: u, Orgs: o}
}

// CheckIn handles POST /v1/attendance. Status codes distinguish the
// failure classes a client reacts to differently: 400 malformed token,
// 404 unknown token, 409 duplicate or not-yet-started, 410 expired or
// terminated, 403 membership problems.
func (h *AttendanceHandler) CheckIn(c echo.Context) error {
    userID, ok := middleware.CallerID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Token string `json:"token"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    tok, okTok := sanitizeToken(body.Token)
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

    now := time.Now().UTC()
    switch sess.State(now) {
    case model.StateActive:
        // proceed
    case model.StateScheduled:
        return c.JSON(http.StatusConflict, echo.Map{"error": "session has not started"})
    default:
        return c.JSON(http.StatusGone, echo.Map{"error": "session no longer active"})
    }

    if err := h.Users.Membership(ctx, userID, sess.OrgID); err != nil {
        switch {
        case errors.Is(err, repository.ErrOrganizationMismatch):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "not a member of this organization"})
        case errors.Is(err, repository.ErrMembershipInactive):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "membership inactive"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }

    rec, err := h.Attendance.Add(ctx, sess.ID, userID, sess.OrgID)
    if err != nil {
        if errors.Is(err, repository.ErrAlreadyCheckedIn) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "already checked in"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record attendance failed"})
    }

    h.publishRecorded(ctx, rec, sess)

    return c.JSON(http.StatusCreated, echo.Map{
        "attendance_id": rec.ID,
        "event_id":      sess.ID,
        "method":        rec.Method,
        "recorded_at":   rec.RecordedAt.UTC().Format(time.RFC3339),
    })
}

// publishRecorded emits the attendance event to the queue. Failure is
// logged, never surfaced: the row is already committed and the event
// stream is a side channel. Echo recycles its contexts once the
// handler returns, so the goroutine is handed plain values and logs
// through the stdlib logger, never through the request context.
func (h *AttendanceHandler) publishRecorded(ctx context.Context, rec *model.AttendanceRecord, sess *model.Session) {
    orgName := ""
    if org, err := h.Orgs.GetByID(ctx, sess.OrgID); err == nil {
        orgName = org.Name
    }
    ev := newRecordedEvent(rec, sess, orgName)
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        if err := queue_publisher.PublishAttendanceRecorded(ctx, ev); err != nil {
            log.Printf("attendance: publish event: %v", err)
        }
    }()
}

// newRecordedEvent maps a committed check-in to its queue payload.
// The event intentionally carries no session token: a queue observer
// must not learn enough to check in.
func newRecordedEvent(rec *model.AttendanceRecord, sess *model.Session, orgName string) queue.AttendanceRecordedEvent {
    return queue.AttendanceRecordedEvent{
        AttendanceID: rec.ID,
        SessionID:    sess.ID,
        SessionTitle: sess.Title,
        UserID:       rec.UserID,
        OrgID:        sess.OrgID,
        OrgName:      orgName,
        Method:       rec.Method,
        RecordedAt:   rec.RecordedAt.UTC().Format(time.RFC3339),
    }
}

// List handles GET /v1/sessions/:token/attendance: the roster of
// check-ins for a session, officer only.
func (h *AttendanceHandler) List(c echo.Context) error {
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
    records, err := h.Attendance.ListBySession(ctx, sess.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    type entry struct {
        AttendanceID uint64 `json:"attendance_id"`
        UserID       uint64 `json:"user_id"`
        Method       string `json:"method"`
        RecordedAt   string `json:"recorded_at"`
    }
    out := make([]entry, 0, len(records))
    for _, r := range records {
        out = append(out, entry{
            AttendanceID: r.ID,
            UserID:       r.UserID,
            Method:       r.Method,
            RecordedAt:   r.RecordedAt.UTC().Format(time.RFC3339),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": sess.ID, "attendance": out})
}
