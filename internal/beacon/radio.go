package beacon

import (
    "context"
    "errors"
    "sync"
)

// ErrRadioUnavailable is returned by Broadcaster and Scanner
// implementations when the radio is powered off or permission is
// denied. Callers re-attempt only on an explicit radio state change,
// never in a retry loop.
var ErrRadioUnavailable = errors.New("beacon: radio unavailable")

// Broadcaster is the platform capability that puts an advertisement on
// the air.  Implementations live outside this module (OS radio stack,
// test fakes); this package only defines the contract.  Stop must be
// safe to call at any time, including before Start and repeatedly.
type Broadcaster interface {
    Start(ctx context.Context, adv Advertisement) error
    Stop()
}

// Scanner is the platform capability that ranges for frames carrying
// the given identifier and delivers each observation to the callback.
// Ranging re-fires every few seconds while a beacon stays in range, so
// callbacks arrive in bursts and may repeat the same (major, minor).
type Scanner interface {
    Start(ctx context.Context, id Identifier, onFrame func(Frame)) error
    Stop()
}

// Advertiser wraps a Broadcaster and guarantees the stop semantics the
// rest of the system relies on: Stop is idempotent, Stop without a
// prior Start is a no-op, and Start while already advertising restarts
// with the new advertisement.
type Advertiser struct {
    mu     sync.Mutex
    radio  Broadcaster
    active bool
}

// NewAdvertiser returns an Advertiser in the stopped state.
func NewAdvertiser(radio Broadcaster) *Advertiser {
    return &Advertiser{radio: radio}
}

// Start begins (or restarts) advertising.  ErrRadioUnavailable from
// the underlying broadcaster is returned unchanged; the advertiser
// stays stopped in that case.
func (a *Advertiser) Start(ctx context.Context, adv Advertisement) error {
    a.mu.Lock()
    defer a.mu.Unlock()
    if a.active {
        a.radio.Stop()
        a.active = false
    }
    if err := a.radio.Start(ctx, adv); err != nil {
        return err
    }
    a.active = true
    return nil
}

// Stop halts advertising.  Calling it twice, or without a prior Start,
// does nothing.
func (a *Advertiser) Stop() {
    a.mu.Lock()
    defer a.mu.Unlock()
    if !a.active {
        return
    }
    a.radio.Stop()
    a.active = false
}

// Active reports whether an advertisement is currently on the air.
func (a *Advertiser) Active() bool {
    a.mu.Lock()
    defer a.mu.Unlock()
    return a.active
}
