package beacon

import (
	"context"
	"errors"
	"testing"
)

// fakeBroadcaster records Start/Stop calls for assertions.
type fakeBroadcaster struct {
	starts   int
	stops    int
	lastAdv  Advertisement
	startErr error
}

func (f *fakeBroadcaster) Start(_ context.Context, adv Advertisement) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	f.lastAdv = adv
	return nil
}

func (f *fakeBroadcaster) Stop() { f.stops++ }

func TestAdvertiserStopWithoutStart(t *testing.T) {
	radio := &fakeBroadcaster{}
	a := NewAdvertiser(radio)

	a.Stop()
	a.Stop()
	if radio.stops != 0 {
		t.Errorf("underlying Stop called %d times before any Start", radio.stops)
	}
}

func TestAdvertiserStopIdempotent(t *testing.T) {
	radio := &fakeBroadcaster{}
	a := NewAdvertiser(radio)

	adv := Advertisement{Major: 1, Minor: 42}
	if err := a.Start(context.Background(), adv); err != nil {
		t.Fatalf("Start: %v", err)
	}
	a.Stop()
	a.Stop()
	a.Stop()
	if radio.stops != 1 {
		t.Errorf("underlying Stop called %d times, want 1", radio.stops)
	}
	if a.Active() {
		t.Error("advertiser still active after Stop")
	}
}

func TestAdvertiserRestart(t *testing.T) {
	radio := &fakeBroadcaster{}
	a := NewAdvertiser(radio)

	first := Advertisement{Major: 1, Minor: 42}
	second := Advertisement{Major: 1, Minor: 99}
	if err := a.Start(context.Background(), first); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := a.Start(context.Background(), second); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if radio.stops != 1 {
		t.Errorf("restart should stop the previous advertisement once, got %d stops", radio.stops)
	}
	if radio.lastAdv != second {
		t.Errorf("lastAdv = %+v, want %+v", radio.lastAdv, second)
	}
}

func TestAdvertiserStartFailure(t *testing.T) {
	radio := &fakeBroadcaster{startErr: errors.New("radio unavailable")}
	a := NewAdvertiser(radio)

	if err := a.Start(context.Background(), Advertisement{Major: 1}); err == nil {
		t.Fatal("expected start error")
	}
	if a.Active() {
		t.Error("advertiser marked active after failed Start")
	}
	a.Stop()
	if radio.stops != 0 {
		t.Errorf("Stop after failed Start reached the radio (%d calls)", radio.stops)
	}
}
