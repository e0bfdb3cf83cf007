package token

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

// stubChecker marks a fixed set of tokens as active and counts calls.
type stubChecker struct {
	active map[string]bool
	calls  int
	err    error
}

func (s *stubChecker) TokenActive(_ context.Context, tok string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.active[tok], nil
}

func TestGenerateShape(t *testing.T) {
	g := NewGenerator(36, 10, nil)
	for i := 0; i < 50; i++ {
		tok, err := g.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(tok) != Length {
			t.Fatalf("len(%q) = %d, want %d", tok, len(tok), Length)
		}
		for _, r := range tok {
			if !strings.ContainsRune(Alphabet, r) {
				t.Fatalf("token %q contains %q outside the alphabet", tok, r)
			}
		}
		if bits := EntropyBits(tok); bits < 36 {
			t.Fatalf("accepted token %q with %.1f bits", tok, bits)
		}
	}
}

func TestEntropyBits(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"AAAAAAAAAAAA", 0},
		// Two characters, six each: H = 1 bit/char, 12 chars total.
		{"ABABABABABAB", 12},
		// All distinct: 12 * log2(12).
		{"ABCDEFGHJKLM", 12 * math.Log2(12)},
	}
	for _, c := range cases {
		if got := EntropyBits(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("EntropyBits(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestUnsatisfiableEntropyExhausts(t *testing.T) {
	// 12*log2(12) ≈ 43 bits is the ceiling for this estimator, so a
	// 60-bit floor must reject every draw and spend the budget.
	g := NewGenerator(60, 5, nil)
	_, err := g.Generate(context.Background())
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("err = %v, want ErrGenerationExhausted", err)
	}
	if !strings.Contains(err.Error(), "entropy") {
		t.Errorf("exhaustion error should carry the entropy cause, got %q", err)
	}
}

// alwaysActive reports every token as colliding and counts calls.
type alwaysActive struct{ calls int }

func (a *alwaysActive) TokenActive(context.Context, string) (bool, error) {
	a.calls++
	return true, nil
}

func TestCollisionRetry(t *testing.T) {
	// Every token is reported active: the generator must retry exactly
	// maxAttempts times and then exhaust.
	always := &alwaysActive{}
	g := NewGenerator(0, 7, always)
	_, err := g.Generate(context.Background())
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("err = %v, want ErrGenerationExhausted", err)
	}
	if always.calls != 7 {
		t.Errorf("checker consulted %d times, want 7", always.calls)
	}
}

func TestCheckerErrorPropagates(t *testing.T) {
	boom := errors.New("store down")
	g := NewGenerator(0, 3, &stubChecker{err: boom})
	_, err := g.Generate(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
	if errors.Is(err, ErrGenerationExhausted) {
		t.Error("store failure must not be reported as exhaustion")
	}
}

func TestValid(t *testing.T) {
	g := NewGenerator(0, 1, nil)
	tok, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !Valid(tok) {
		t.Errorf("generated token %q reported invalid", tok)
	}
	for _, bad := range []string{"", "SHORT", "ABCDEFGHJKL0", "abcdefghjklm", "ABCDEFGHJKLMN"} {
		if Valid(bad) {
			t.Errorf("Valid(%q) = true, want false", bad)
		}
	}
}
