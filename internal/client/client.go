// Package client is the scanner-side API client. A mobile scanner
// embeds it next to a reconciler: the client satisfies
// reconciler.Directory over HTTP and performs the final check-in
// submission.
package client

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/iliyamo/beacon-attendance/internal/beacon"
    "github.com/iliyamo/beacon-attendance/internal/reconciler"
)

// Sentinel errors mapped from API status codes. Callers branch on
// these to decide what to show the member.
var (
    ErrUnauthorized     = errors.New("client: access token rejected")
    ErrSessionGone      = errors.New("client: session expired or terminated")
    ErrAlreadyCheckedIn = errors.New("client: already checked in")
    ErrNotMember        = errors.New("client: not an eligible member")
    ErrRateLimited      = errors.New("client: rate limited")
)

// Client talks to the attendance API on behalf of one authenticated
// user. It is safe for concurrent use. The zero value is not usable;
// construct with New.
type Client struct {
    baseURL string
    token   string
    http    *http.Client
}

// New returns a Client for the given API base URL (e.g.
// "https://attendance.example.org") and bearer access token.
func New(baseURL, accessToken string) *Client {
    return &Client{
        baseURL: strings.TrimRight(baseURL, "/"),
        token:   accessToken,
        http:    &http.Client{Timeout: 10 * time.Second},
    }
}

// SetToken swaps the bearer token after a refresh.
func (c *Client) SetToken(accessToken string) { c.token = accessToken }

type sessionPayload struct {
    EventID  uint64 `json:"event_id"`
    Token    string `json:"token"`
    Title    string `json:"title"`
    OrgID    uint64 `json:"org_id"`
    StartsAt string `json:"starts_at"`
    EndsAt   string `json:"ends_at"`
}

func (p *sessionPayload) toSession() (*reconciler.Session, error) {
    starts, err := time.Parse(time.RFC3339, p.StartsAt)
    if err != nil {
        return nil, fmt.Errorf("client: parse starts_at: %w", err)
    }
    ends, err := time.Parse(time.RFC3339, p.EndsAt)
    if err != nil {
        return nil, fmt.Errorf("client: parse ends_at: %w", err)
    }
    return &reconciler.Session{
        ID:       p.EventID,
        Token:    p.Token,
        Title:    p.Title,
        OrgID:    p.OrgID,
        StartsAt: starts,
        EndsAt:   ends,
    }, nil
}

// FindByBeacon implements reconciler.Directory. A 404 means no active
// session matches the observed fields and resolves to (nil, nil). The
// orgID argument is informational here: the server scopes the lookup
// by the token's organization claim.
func (c *Client) FindByBeacon(ctx context.Context, major beacon.OrgCode, minor uint16, orgID uint64) (*reconciler.Session, error) {
    u := c.baseURL + "/v1/sessions/beacon?major=" + strconv.FormatUint(uint64(major), 10) +
        "&minor=" + strconv.FormatUint(uint64(minor), 10)
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil {
        return nil, err
    }
    resp, err := c.do(req)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()

    switch resp.StatusCode {
    case http.StatusOK:
        var p sessionPayload
        if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
            return nil, fmt.Errorf("client: decode session: %w", err)
        }
        return p.toSession()
    case http.StatusNotFound:
        return nil, nil
    default:
        return nil, c.statusErr(resp)
    }
}

// CheckInResult is the server's confirmation of a recorded check-in.
type CheckInResult struct {
    AttendanceID uint64 `json:"attendance_id"`
    EventID      uint64 `json:"event_id"`
    Method       string `json:"method"`
    RecordedAt   string `json:"recorded_at"`
}

// CheckIn submits the session token for attendance. Duplicate
// submissions return ErrAlreadyCheckedIn; an expired or terminated
// session returns ErrSessionGone.
func (c *Client) CheckIn(ctx context.Context, sessionToken string) (*CheckInResult, error) {
    body, err := json.Marshal(map[string]string{"token": sessionToken})
    if err != nil {
        return nil, err
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/attendance", bytes.NewReader(body))
    if err != nil {
        return nil, err
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.do(req)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()

    if resp.StatusCode == http.StatusCreated {
        var res CheckInResult
        if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
            return nil, fmt.Errorf("client: decode check-in: %w", err)
        }
        return &res, nil
    }
    return nil, c.statusErr(resp)
}

// Resolve looks a session up by its exact token, any lifecycle state.
func (c *Client) Resolve(ctx context.Context, sessionToken string) (*reconciler.Session, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sessions/"+sessionToken, nil)
    if err != nil {
        return nil, err
    }
    resp, err := c.do(req)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()

    if resp.StatusCode == http.StatusOK {
        var p sessionPayload
        if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
            return nil, fmt.Errorf("client: decode session: %w", err)
        }
        return p.toSession()
    }
    if resp.StatusCode == http.StatusNotFound {
        return nil, nil
    }
    return nil, c.statusErr(resp)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
    req.Header.Set("Authorization", "Bearer "+c.token)
    req.Header.Set("Accept", "application/json")
    return c.http.Do(req)
}

// statusErr maps an unexpected status code to a sentinel where one
// exists, carrying the server's error text otherwise.
func (c *Client) statusErr(resp *http.Response) error {
    switch resp.StatusCode {
    case http.StatusUnauthorized:
        return ErrUnauthorized
    case http.StatusForbidden:
        return ErrNotMember
    case http.StatusConflict:
        return ErrAlreadyCheckedIn
    case http.StatusGone:
        return ErrSessionGone
    case http.StatusTooManyRequests:
        return ErrRateLimited
    }
    msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
    return fmt.Errorf("client: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
}
