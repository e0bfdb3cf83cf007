// Package reconciler matches observed radio frames to server-known
// sessions.  It addresses the core race of the protocol: beacon
// callbacks can arrive before the device knows which organization its
// user belongs to, so frames must be held and replayed once that
// context lands.  One Reconciler instance is created per scanning
// session and owns all of its state; nothing here is process-global.
package reconciler

import (
    "context"
    "log"
    "sync"
    "time"

    "github.com/iliyamo/beacon-attendance/internal/beacon"
)

// Session is the resolved server-side view of a detected beacon.
type Session struct {
    ID        uint64
    Token     string
    Title     string
    OrgID     uint64
    StartsAt  time.Time
    EndsAt    time.Time
}

// Directory resolves a (major, minor) pair against the authoritative
// store.  A nil session with nil error means no active session matches
// — that is an expected outcome, not a failure.
type Directory interface {
    FindByBeacon(ctx context.Context, major beacon.OrgCode, minor uint16, orgID uint64) (*Session, error)
}

// OrgContext is the local user's organization, learned asynchronously
// after scanning may already have started.
type OrgContext struct {
    OrgID uint64
    Code  beacon.OrgCode
}

// Config carries the operationally tunable horizons.  Zero values are
// replaced with the defaults below.
type Config struct {
    // DedupeWindow suppresses re-resolution of a (major, minor) pair
    // that resolved successfully within this window.  Ranging re-fires
    // every few seconds for a beacon that stays in range.
    DedupeWindow time.Duration
    // DeferredRetention bounds how long a frame waits for organization
    // context before being discarded.
    DeferredRetention time.Duration
    // StalenessHorizon is how long a detected session stays visible
    // after its beacon was last observed.
    StalenessHorizon time.Duration
}

const (
    defaultDedupeWindow      = 30 * time.Second
    defaultDeferredRetention = time.Hour
    defaultStalenessHorizon  = 90 * time.Second
)

// Stats are cumulative counters for diagnosis.  They are observable so
// operators can tell "frames are being dropped" apart from "nothing is
// broadcasting" without per-frame error noise.
type Stats struct {
    Deferred   uint64 // frames cached awaiting organization context
    Replayed   uint64 // deferred frames reprocessed after context arrived
    Dropped    uint64 // frames discarded (foreign major, retention elapsed)
    Resolved   uint64 // frames that resolved to a session
    Suppressed uint64 // frames skipped by the dedupe window
}

type frameKey struct {
    major beacon.OrgCode
    minor uint16
}

type deferredEntry struct {
    frame     beacon.Frame
    firstSeen time.Time
    lastSeen  time.Time
}

// Detection is a currently visible session: resolved, in range, not
// yet checked in.
type Detection struct {
    Session  Session
    Major    beacon.OrgCode
    Minor    uint16
    LastSeen time.Time
}

// Reconciler is the two-stage pipeline.  All methods are safe for
// concurrent use; processing is serialized by a single mutex because
// ranging delivers bursts of callbacks for the same beacon.
type Reconciler struct {
    mu sync.Mutex

    identifier beacon.Identifier
    dir        Directory
    cfg        Config
    now        func() time.Time

    org      *OrgContext
    deferred map[frameKey]*deferredEntry
    resolved map[frameKey]time.Time // dedupe window bookkeeping
    visible  map[frameKey]*Detection

    stats Stats

    // onDetected fires once per new resolution, outside any later
    // suppression.  Nil is allowed.
    onDetected func(Detection)
}

// New builds a Reconciler scanning for the given deployment identifier.
// onDetected may be nil.
func New(id beacon.Identifier, dir Directory, cfg Config, onDetected func(Detection)) *Reconciler {
    if cfg.DedupeWindow <= 0 {
        cfg.DedupeWindow = defaultDedupeWindow
    }
    if cfg.DeferredRetention <= 0 {
        cfg.DeferredRetention = defaultDeferredRetention
    }
    if cfg.StalenessHorizon <= 0 {
        cfg.StalenessHorizon = defaultStalenessHorizon
    }
    return &Reconciler{
        identifier: id,
        dir:        dir,
        cfg:        cfg,
        now:        time.Now,
        deferred:   make(map[frameKey]*deferredEntry),
        resolved:   make(map[frameKey]time.Time),
        visible:    make(map[frameKey]*Detection),
        onDetected: onDetected,
    }
}

// Observe ingests one frame (Stage A).  Frames for foreign deployments
// are ignored outright.  With organization context known the frame is
// processed immediately (Stage B); otherwise it is cached until
// SetOrganization replays it or retention elapses.
func (r *Reconciler) Observe(ctx context.Context, f beacon.Frame) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if f.Identifier != r.identifier {
        return
    }
    now := r.now()
    if f.ObservedAt.IsZero() {
        f.ObservedAt = now
    }
    r.pruneLocked(now)

    if r.org == nil {
        key := frameKey{f.Major, f.Minor}
        if e, ok := r.deferred[key]; ok {
            e.lastSeen = now
            e.frame = f
        } else {
            r.deferred[key] = &deferredEntry{frame: f, firstSeen: now, lastSeen: now}
            r.stats.Deferred++
        }
        return
    }
    r.processLocked(ctx, f, now)
}

// SetOrganization installs the organization context and replays every
// deferred frame exactly once.  The cache is cleared as a whole after
// the replay, not per frame, so a frame can never be replayed twice
// even if processing partially fails.
func (r *Reconciler) SetOrganization(ctx context.Context, org OrgContext) {
    r.mu.Lock()
    defer r.mu.Unlock()

    r.org = &org
    if len(r.deferred) == 0 {
        return
    }
    pending := make([]beacon.Frame, 0, len(r.deferred))
    for _, e := range r.deferred {
        pending = append(pending, e.frame)
    }
    r.deferred = make(map[frameKey]*deferredEntry)

    now := r.now()
    for _, f := range pending {
        r.stats.Replayed++
        r.processLocked(ctx, f, now)
    }
}

// processLocked is Stage B for one frame.  Caller holds the mutex.
func (r *Reconciler) processLocked(ctx context.Context, f beacon.Frame, now time.Time) {
    if f.Major != r.org.Code {
        // A foreign major can never become resolvable for this user
        // without an organization change, which would tear down this
        // reconciler anyway.  Drop without caching.
        r.stats.Dropped++
        return
    }
    key := frameKey{f.Major, f.Minor}
    if d, ok := r.visible[key]; ok {
        d.LastSeen = now
    }
    if last, ok := r.resolved[key]; ok && now.Sub(last) < r.cfg.DedupeWindow {
        r.stats.Suppressed++
        return
    }

    sess, err := r.dir.FindByBeacon(ctx, f.Major, f.Minor, r.org.OrgID)
    if err != nil {
        // Store failures are retryable on the next ranging callback;
        // log them so sustained failure is visible, but do not poison
        // the dedupe window.
        log.Printf("reconciler: find by beacon (%d, %d): %v", f.Major, f.Minor, err)
        return
    }
    if sess == nil {
        return
    }
    r.resolved[key] = now
    r.stats.Resolved++
    if _, ok := r.visible[key]; !ok {
        det := Detection{Session: *sess, Major: f.Major, Minor: f.Minor, LastSeen: now}
        r.visible[key] = &det
        if r.onDetected != nil {
            r.onDetected(det)
        }
    }
}

// MarkCheckedIn removes the session from the visible set after the
// local user successfully recorded attendance; the dedupe entry stays
// so continuing ranging callbacks do not re-surface it immediately.
func (r *Reconciler) MarkCheckedIn(major beacon.OrgCode, minor uint16) {
    r.mu.Lock()
    defer r.mu.Unlock()
    delete(r.visible, frameKey{major, minor})
}

// Discard removes a session from the visible set without touching the
// dedupe window.  Used when the caller learns the session left the
// active state (expired, terminated, organization mismatch).
func (r *Reconciler) Discard(major beacon.OrgCode, minor uint16) {
    r.mu.Lock()
    defer r.mu.Unlock()
    delete(r.visible, frameKey{major, minor})
}

// Visible returns the sessions currently in range and unresolved into
// a check-in, pruning stale ones first.
func (r *Reconciler) Visible() []Detection {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.pruneLocked(r.now())
    out := make([]Detection, 0, len(r.visible))
    for _, d := range r.visible {
        out = append(out, *d)
    }
    return out
}

// Stats returns a snapshot of the counters.
func (r *Reconciler) Stats() Stats {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.stats
}

// pruneLocked drops deferred frames past retention and visible
// sessions whose beacon has not been re-observed within the staleness
// horizon.  Caller holds the mutex.
func (r *Reconciler) pruneLocked(now time.Time) {
    for key, e := range r.deferred {
        if now.Sub(e.firstSeen) >= r.cfg.DeferredRetention {
            delete(r.deferred, key)
            r.stats.Dropped++
        }
    }
    for key, d := range r.visible {
        if now.Sub(d.LastSeen) >= r.cfg.StalenessHorizon {
            delete(r.visible, key)
        }
    }
    for key, last := range r.resolved {
        if now.Sub(last) >= r.cfg.DedupeWindow {
            delete(r.resolved, key)
        }
    }
}
