package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/beacon-attendance/internal/beacon"
)

var testID, _ = beacon.ParseIdentifier(beacon.DefaultIdentifier)

// fakeDirectory resolves a fixed set of (major, minor) pairs and
// counts lookups.
type fakeDirectory struct {
	mu       sync.Mutex
	sessions map[[2]uint16]*Session
	lookups  int
	err      error
}

func (d *fakeDirectory) FindByBeacon(_ context.Context, major beacon.OrgCode, minor uint16, _ uint64) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups++
	if d.err != nil {
		return nil, d.err
	}
	return d.sessions[[2]uint16{uint16(major), minor}], nil
}

func frame(major beacon.OrgCode, minor uint16, at time.Time) beacon.Frame {
	return beacon.Frame{Identifier: testID, Major: major, Minor: minor, ObservedAt: at}
}

// newTestReconciler wires a reconciler with a controllable clock.
func newTestReconciler(dir Directory, onDetected func(Detection)) (*Reconciler, *time.Time) {
	r := New(testID, dir, Config{}, onDetected)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	r.now = func() time.Time { return *clock }
	return r, clock
}

func TestDeferredFrameReplayedOnce(t *testing.T) {
	sess := &Session{ID: 7, Token: "ABCDEFGHJKLM", Title: "Drive Review", OrgID: 3}
	dir := &fakeDirectory{sessions: map[[2]uint16]*Session{{1, 42}: sess}}

	var detections []Detection
	r, clock := newTestReconciler(dir, func(d Detection) { detections = append(detections, d) })

	// Frame arrives before the organization is known: cached, no lookup.
	r.Observe(context.Background(), frame(1, 42, *clock))
	if dir.lookups != 0 {
		t.Fatalf("lookup performed without org context")
	}
	if s := r.Stats(); s.Deferred != 1 {
		t.Fatalf("deferred = %d, want 1", s.Deferred)
	}

	// Context lands: exactly one replay, one lookup, one detection.
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})
	if dir.lookups != 1 {
		t.Errorf("lookups = %d, want 1", dir.lookups)
	}
	if len(detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(detections))
	}
	if detections[0].Session.ID != 7 {
		t.Errorf("detected session %d, want 7", detections[0].Session.ID)
	}

	// Setting context again must not replay anything.
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})
	if dir.lookups != 1 {
		t.Errorf("replay after cache clear: lookups = %d, want 1", dir.lookups)
	}
	if s := r.Stats(); s.Replayed != 1 {
		t.Errorf("replayed = %d, want 1", s.Replayed)
	}
}

func TestDedupeWindowSuppressesRepeats(t *testing.T) {
	sess := &Session{ID: 1, Token: "ABCDEFGHJKLM"}
	dir := &fakeDirectory{sessions: map[[2]uint16]*Session{{1, 42}: sess}}
	var detections int
	r, clock := newTestReconciler(dir, func(Detection) { detections++ })
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})

	// Ranging re-fires for the same beacon every few seconds.
	for i := 0; i < 5; i++ {
		r.Observe(context.Background(), frame(1, 42, *clock))
		*clock = clock.Add(3 * time.Second)
	}
	if dir.lookups != 1 {
		t.Errorf("lookups = %d, want 1 (dedupe window)", dir.lookups)
	}
	if detections != 1 {
		t.Errorf("detections = %d, want 1", detections)
	}
	if s := r.Stats(); s.Suppressed != 4 {
		t.Errorf("suppressed = %d, want 4", s.Suppressed)
	}

	// Past the window the pair resolves again, but the session is
	// already visible so no second detection event fires.
	*clock = clock.Add(defaultDedupeWindow)
	r.Observe(context.Background(), frame(1, 42, *clock))
	if dir.lookups != 2 {
		t.Errorf("lookups = %d, want 2 after window elapsed", dir.lookups)
	}
	if detections != 1 {
		t.Errorf("detections = %d, want still 1", detections)
	}
}

func TestForeignMajorDroppedNotCached(t *testing.T) {
	dir := &fakeDirectory{}
	r, clock := newTestReconciler(dir, nil)
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})

	r.Observe(context.Background(), frame(2, 42, *clock))
	if dir.lookups != 0 {
		t.Errorf("foreign major reached the directory")
	}
	s := r.Stats()
	if s.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", s.Dropped)
	}
	if s.Deferred != 0 {
		t.Errorf("foreign major was cached")
	}
}

func TestForeignIdentifierIgnored(t *testing.T) {
	dir := &fakeDirectory{}
	r, clock := newTestReconciler(dir, nil)

	other, _ := beacon.ParseIdentifier("00000000-0000-0000-0000-000000000001")
	f := beacon.Frame{Identifier: other, Major: 1, Minor: 42, ObservedAt: *clock}
	r.Observe(context.Background(), f)
	if s := r.Stats(); s.Deferred != 0 || s.Dropped != 0 {
		t.Errorf("foreign identifier entered the pipeline: %+v", s)
	}
}

func TestDeferredRetentionBound(t *testing.T) {
	dir := &fakeDirectory{sessions: map[[2]uint16]*Session{{1, 42}: {ID: 1}}}
	r, clock := newTestReconciler(dir, nil)

	r.Observe(context.Background(), frame(1, 42, *clock))
	// Context never arrives for over an hour; the next observation of
	// anything prunes the stale entry.
	*clock = clock.Add(defaultDeferredRetention + time.Minute)
	r.Observe(context.Background(), frame(1, 99, *clock))

	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})
	// Only the fresh (1, 99) frame may replay; the aged (1, 42) one
	// was discarded.
	if dir.lookups != 1 {
		t.Errorf("lookups = %d, want 1 (aged frame must not replay)", dir.lookups)
	}
	if s := r.Stats(); s.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", s.Dropped)
	}
}

func TestVisibleStalenessHorizon(t *testing.T) {
	sess := &Session{ID: 1}
	dir := &fakeDirectory{sessions: map[[2]uint16]*Session{{1, 42}: sess}}
	r, clock := newTestReconciler(dir, nil)
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})

	r.Observe(context.Background(), frame(1, 42, *clock))
	if got := len(r.Visible()); got != 1 {
		t.Fatalf("visible = %d, want 1", got)
	}

	// Beacon keeps being observed: stays visible past the horizon.
	*clock = clock.Add(time.Minute)
	r.Observe(context.Background(), frame(1, 42, *clock))
	*clock = clock.Add(time.Minute)
	if got := len(r.Visible()); got != 1 {
		t.Fatalf("re-observed beacon pruned early")
	}

	// Out of range: nothing re-observes it, horizon elapses.
	*clock = clock.Add(defaultStalenessHorizon)
	if got := len(r.Visible()); got != 0 {
		t.Errorf("visible = %d, want 0 after staleness horizon", got)
	}
}

func TestMarkCheckedInHidesSession(t *testing.T) {
	sess := &Session{ID: 1}
	dir := &fakeDirectory{sessions: map[[2]uint16]*Session{{1, 42}: sess}}
	r, clock := newTestReconciler(dir, nil)
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})

	r.Observe(context.Background(), frame(1, 42, *clock))
	r.MarkCheckedIn(1, 42)
	if got := len(r.Visible()); got != 0 {
		t.Errorf("visible = %d, want 0 after check-in", got)
	}
	// The dedupe window still suppresses the chatty ranging callbacks.
	r.Observe(context.Background(), frame(1, 42, *clock))
	if dir.lookups != 1 {
		t.Errorf("lookups = %d, want 1 (dedupe survives check-in)", dir.lookups)
	}
}

func TestDirectoryErrorDoesNotPoisonDedupe(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("store down")}
	r, clock := newTestReconciler(dir, nil)
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})

	r.Observe(context.Background(), frame(1, 42, *clock))
	if dir.lookups != 1 {
		t.Fatalf("lookups = %d, want 1", dir.lookups)
	}

	// Store recovers; the very next callback may retry immediately.
	dir.mu.Lock()
	dir.err = nil
	dir.sessions = map[[2]uint16]*Session{{1, 42}: {ID: 1}}
	dir.mu.Unlock()

	*clock = clock.Add(2 * time.Second)
	r.Observe(context.Background(), frame(1, 42, *clock))
	if dir.lookups != 2 {
		t.Errorf("lookups = %d, want 2 (error must not start the dedupe window)", dir.lookups)
	}
	if s := r.Stats(); s.Resolved != 1 {
		t.Errorf("resolved = %d, want 1", s.Resolved)
	}
}

func TestNoMatchIsNotResolved(t *testing.T) {
	dir := &fakeDirectory{}
	var detections int
	r, clock := newTestReconciler(dir, func(Detection) { detections++ })
	r.SetOrganization(context.Background(), OrgContext{OrgID: 3, Code: 1})

	r.Observe(context.Background(), frame(1, 42, *clock))
	if detections != 0 {
		t.Errorf("detection emitted for unmatched beacon")
	}
	if s := r.Stats(); s.Resolved != 0 {
		t.Errorf("resolved = %d, want 0", s.Resolved)
	}
}
