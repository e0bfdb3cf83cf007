package beacon

import "testing"

// Frozen reference vectors. These values are the cross-implementation
// contract for the minor field: every broadcaster and scanner, in any
// language, must produce exactly these digests for these tokens. Do
// not regenerate them from the implementation under test.
var minorVectors = []struct {
	token string
	minor uint16
}{
	{"", 0},
	{"A", 65},
	{"ABCDEFGHJKLM", 33841},
	{"ZZZZZZZZZZZZ", 55646},
	{"Q7PM4KXR2WVN", 51598},
	{"23456789BCDF", 12554},
	{"KMNPQ2345679", 49467},
	{"WXYZ23456789", 25605},
	// Single trailing-character difference must change the digest.
	{"AAAAAAAAAAAA", 139},
	{"AAAAAAAAAAAB", 140},
}

func TestEncodeMinorVectors(t *testing.T) {
	for _, v := range minorVectors {
		if got := EncodeMinor(v.token); got != v.minor {
			t.Errorf("EncodeMinor(%q) = %d, want %d", v.token, got, v.minor)
		}
	}
}

func TestEncodeMinorDeterministic(t *testing.T) {
	const token = "Q7PM4KXR2WVN"
	first := EncodeMinor(token)
	for i := 0; i < 100; i++ {
		if got := EncodeMinor(token); got != first {
			t.Fatalf("EncodeMinor not stable: got %d then %d", first, got)
		}
	}
}

func TestCodeForOrg(t *testing.T) {
	code, ok := CodeForOrg("robotics-club")
	if !ok || code != 1 {
		t.Errorf("CodeForOrg(robotics-club) = (%d, %v), want (1, true)", code, ok)
	}
	if _, ok := CodeForOrg("Robotics-Club"); ok {
		t.Error("registry lookup must be exact, got a match for wrong casing")
	}
	if _, ok := CodeForOrg("unregistered"); ok {
		t.Error("unregistered slug resolved to a code")
	}
}

func TestKnownCode(t *testing.T) {
	if !KnownCode(1) {
		t.Error("code 1 should be known")
	}
	if KnownCode(0) {
		t.Error("code 0 is reserved and must never be known")
	}
	if KnownCode(60000) {
		t.Error("code 60000 should be unknown")
	}
}

func TestNewAdvertisement(t *testing.T) {
	id, err := ParseIdentifier(DefaultIdentifier)
	if err != nil {
		t.Fatalf("ParseIdentifier(%q): %v", DefaultIdentifier, err)
	}
	adv := NewAdvertisement(id, 1, "ABCDEFGHJKLM")
	if adv.Major != 1 {
		t.Errorf("major = %d, want 1", adv.Major)
	}
	if adv.Minor != 33841 {
		t.Errorf("minor = %d, want 33841", adv.Minor)
	}
	if adv.Identifier != id {
		t.Error("identifier not carried into advertisement")
	}
}

func TestParseIdentifierRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "not-a-uuid", "8ec76ea3-6668-48da-9866"} {
		if _, err := ParseIdentifier(bad); err == nil {
			t.Errorf("ParseIdentifier(%q) accepted a malformed identifier", bad)
		}
	}
}
