package model

import (
    "testing"
    "time"
)

func TestSessionStateDerivation(t *testing.T) {
    base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
    termAt := base.Add(20 * time.Minute)

    s := Session{StartsAt: base, EndsAt: base.Add(time.Hour)}

    cases := []struct {
        name       string
        terminated *time.Time
        now        time.Time
        want       SessionState
    }{
        {"before window", nil, base.Add(-time.Minute), StateScheduled},
        {"at open instant", nil, base, StateActive},
        {"inside window", nil, base.Add(30 * time.Minute), StateActive},
        {"at close instant", nil, base.Add(time.Hour), StateExpired},
        {"after window", nil, base.Add(2 * time.Hour), StateExpired},
        {"terminated wins inside window", &termAt, base.Add(30 * time.Minute), StateTerminated},
        {"terminated wins after window", &termAt, base.Add(2 * time.Hour), StateTerminated},
        {"terminated wins before window", &termAt, base.Add(-time.Minute), StateTerminated},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            s := s
            s.TerminatedAt = tc.terminated
            if got := s.State(tc.now); got != tc.want {
                t.Fatalf("State = %q, want %q", got, tc.want)
            }
        })
    }
}

func TestSessionRemaining(t *testing.T) {
    base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
    s := Session{StartsAt: base, EndsAt: base.Add(time.Hour)}

    if got := s.Remaining(base.Add(45 * time.Minute)); got != 900 {
        t.Fatalf("Remaining inside window = %d, want 900", got)
    }
    if got := s.Remaining(base.Add(-time.Minute)); got != 0 {
        t.Fatalf("Remaining before window = %d, want 0", got)
    }
    if got := s.Remaining(base.Add(2 * time.Hour)); got != 0 {
        t.Fatalf("Remaining after window = %d, want 0", got)
    }
    termAt := base.Add(10 * time.Minute)
    s.TerminatedAt = &termAt
    if got := s.Remaining(base.Add(30 * time.Minute)); got != 0 {
        t.Fatalf("Remaining after termination = %d, want 0", got)
    }
}
