// Package token produces session tokens with verified randomness
// quality.  Tokens are short random strings over a restricted alphabet;
// they identify one attendance window and are never broadcast in full,
// only as a 16-bit digest.
package token

import (
    "context"
    "crypto/rand"
    "errors"
    "fmt"
    "math"
    "math/big"
)

// Alphabet is the token character set: 32 characters, with the
// ambiguous glyphs 0/O and 1/I excluded so tokens survive being read
// aloud or typed by hand.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the fixed token length.
const Length = 12

// ErrEntropyTooLow marks a draw whose realized entropy fell below the
// configured minimum.  Generate retries such draws internally; the
// sentinel surfaces only wrapped in ErrGenerationExhausted.
var ErrEntropyTooLow = errors.New("token entropy below minimum")

// ErrGenerationExhausted is returned when the bounded retry budget is
// spent without producing an acceptable, non-colliding token.
var ErrGenerationExhausted = errors.New("token generation exhausted")

// ActiveTokenChecker reports whether a token is already in use by a
// currently active session.  The session repository implements it.
// The check here is advisory — the authoritative uniqueness guarantee
// is the store's conditional insert — but it keeps almost every
// collision out of the insert path.
type ActiveTokenChecker interface {
    TokenActive(ctx context.Context, token string) (bool, error)
}

// Generator draws tokens, rejects low-diversity draws and retries past
// active-token collisions up to a bounded attempt budget.
type Generator struct {
    minEntropyBits float64
    maxAttempts    int
    active         ActiveTokenChecker
}

// NewGenerator builds a Generator.  minEntropyBits is the minimum
// realized entropy of an accepted token (see EntropyBits; values above
// ~43 are unsatisfiable for 12-character tokens and will exhaust every
// call).  maxAttempts bounds the retry loop; values below 1 are
// raised to 1.  checker may be nil, in which case only the store-level
// constraint guards uniqueness.
func NewGenerator(minEntropyBits float64, maxAttempts int, checker ActiveTokenChecker) *Generator {
    if maxAttempts < 1 {
        maxAttempts = 1
    }
    return &Generator{
        minEntropyBits: minEntropyBits,
        maxAttempts:    maxAttempts,
        active:         checker,
    }
}

// Generate returns a fresh token of Length characters over Alphabet.
// Draws failing the entropy check or colliding with an active session
// token consume an attempt; when the budget runs out the error wraps
// ErrGenerationExhausted and the last rejection cause.
func (g *Generator) Generate(ctx context.Context) (string, error) {
    var lastCause error
    for attempt := 0; attempt < g.maxAttempts; attempt++ {
        tok, err := draw()
        if err != nil {
            return "", fmt.Errorf("draw token: %w", err)
        }
        if bits := EntropyBits(tok); bits < g.minEntropyBits {
            lastCause = fmt.Errorf("%w: %.1f < %.1f bits", ErrEntropyTooLow, bits, g.minEntropyBits)
            continue
        }
        if g.active != nil {
            inUse, err := g.active.TokenActive(ctx, tok)
            if err != nil {
                return "", fmt.Errorf("collision check: %w", err)
            }
            if inUse {
                lastCause = fmt.Errorf("token %q already active", tok)
                continue
            }
        }
        return tok, nil
    }
    if lastCause == nil {
        lastCause = errors.New("no attempts made")
    }
    return "", fmt.Errorf("%w after %d attempts: %v", ErrGenerationExhausted, g.maxAttempts, lastCause)
}

// draw produces one candidate token using crypto/rand.  Each character
// is an independent uniform pick from Alphabet.
func draw() (string, error) {
    max := big.NewInt(int64(len(Alphabet)))
    buf := make([]byte, Length)
    for i := range buf {
        n, err := rand.Int(rand.Reader, max)
        if err != nil {
            return "", err
        }
        buf[i] = Alphabet[n.Int64()]
    }
    return string(buf), nil
}

// EntropyBits computes the realized Shannon entropy of the string's
// character-frequency distribution, multiplied by its length.  This is
// a diversity measure of the concrete draw, not of the generator: a
// 12-character string of distinct characters scores 12*log2(12) ≈ 43
// bits, a single repeated character scores 0.  It exists to reject
// pathological low-diversity draws that are technically possible even
// from a uniform source.
func EntropyBits(s string) float64 {
    if len(s) == 0 {
        return 0
    }
    freq := make(map[rune]int, len(s))
    for _, r := range s {
        freq[r]++
    }
    n := float64(len(s))
    var h float64
    for _, count := range freq {
        p := float64(count) / n
        h -= p * math.Log2(p)
    }
    return h * n
}

// Valid reports whether s is a well-formed token: exact length and
// every character from Alphabet.  Used to sanitize tokens arriving
// from clients before they reach the store.
func Valid(s string) bool {
    if len(s) != Length {
        return false
    }
    for i := 0; i < len(s); i++ {
        found := false
        for j := 0; j < len(Alphabet); j++ {
            if s[i] == Alphabet[j] {
                found = true
                break
            }
        }
        if !found {
            return false
        }
    }
    return true
}
