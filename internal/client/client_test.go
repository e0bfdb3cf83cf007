package client

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/iliyamo/beacon-attendance/internal/beacon"
)

func TestFindByBeaconResolves(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/v1/sessions/beacon" {
            t.Errorf("path = %q", r.URL.Path)
        }
        if got := r.Header.Get("Authorization"); got != "Bearer tok" {
            t.Errorf("Authorization = %q", got)
        }
        if r.URL.Query().Get("major") != "3" || r.URL.Query().Get("minor") != "51598" {
            t.Errorf("query = %q", r.URL.RawQuery)
        }
        w.Header().Set("Content-Type", "application/json")
        w.Write([]byte(`{"event_id":7,"token":"Q7PM4KXR2WVN","title":"Weekly standup","org_id":3,"starts_at":"2026-08-30T10:00:00Z","ends_at":"2026-08-30T11:00:00Z"}`))
    }))
    defer srv.Close()

    c := New(srv.URL, "tok")
    sess, err := c.FindByBeacon(context.Background(), beacon.OrgCode(3), 51598, 3)
    if err != nil {
        t.Fatalf("FindByBeacon: %v", err)
    }
    if sess == nil || sess.ID != 7 || sess.Token != "Q7PM4KXR2WVN" {
        t.Fatalf("unexpected session: %+v", sess)
    }
}

func TestFindByBeaconNoMatch(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, `{"error":"no active session matches"}`, http.StatusNotFound)
    }))
    defer srv.Close()

    sess, err := New(srv.URL, "tok").FindByBeacon(context.Background(), 1, 2, 1)
    if err != nil {
        t.Fatalf("404 must not be an error, got %v", err)
    }
    if sess != nil {
        t.Fatalf("expected nil session, got %+v", sess)
    }
}

func TestCheckInDuplicate(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, `{"error":"already checked in"}`, http.StatusConflict)
    }))
    defer srv.Close()

    _, err := New(srv.URL, "tok").CheckIn(context.Background(), "Q7PM4KXR2WVN")
    if !errors.Is(err, ErrAlreadyCheckedIn) {
        t.Fatalf("err = %v, want ErrAlreadyCheckedIn", err)
    }
}

func TestCheckInGone(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, `{"error":"session no longer active"}`, http.StatusGone)
    }))
    defer srv.Close()

    _, err := New(srv.URL, "tok").CheckIn(context.Background(), "Q7PM4KXR2WVN")
    if !errors.Is(err, ErrSessionGone) {
        t.Fatalf("err = %v, want ErrSessionGone", err)
    }
}

func TestCheckInSuccess(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodPost || r.URL.Path != "/v1/attendance" {
            t.Errorf("%s %s", r.Method, r.URL.Path)
        }
        w.WriteHeader(http.StatusCreated)
        w.Write([]byte(`{"attendance_id":42,"event_id":7,"method":"beacon","recorded_at":"2026-08-30T10:05:00Z"}`))
    }))
    defer srv.Close()

    res, err := New(srv.URL, "tok").CheckIn(context.Background(), "Q7PM4KXR2WVN")
    if err != nil {
        t.Fatalf("CheckIn: %v", err)
    }
    if res.AttendanceID != 42 || res.Method != "beacon" {
        t.Fatalf("unexpected result: %+v", res)
    }
}
