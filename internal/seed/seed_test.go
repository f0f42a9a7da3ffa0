package seed

import (
	"regexp"
	"testing"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestComposeSeedInput_Deterministic(t *testing.T) {
	a := ComposeSeedInput("m1", 1000, []string{"a", "b"}, "C001")
	b := ComposeSeedInput("m1", 1000, []string{"a", "b"}, "C001")
	if a != b {
		t.Fatalf("expected identical seed inputs, got %q vs %q", a, b)
	}
	if a != "m1|1000|2|a|b|C001" {
		t.Errorf("unexpected layout %q", a)
	}
	if Digest(a) != Digest(b) {
		t.Fatal("expected identical digests")
	}
}

func TestComposeSeedInput_OrderMatters(t *testing.T) {
	ab := ComposeSeedInput("m1", 1000, []string{"a", "b"}, "C001")
	ba := ComposeSeedInput("m1", 1000, []string{"b", "a"}, "C001")
	if ab == ba {
		t.Fatal("module order must change the seed input")
	}
	if Digest(ab) == Digest(ba) {
		t.Fatal("module order must change the digest")
	}
}

func TestComposeSeedInput_Unambiguous(t *testing.T) {
	pairs := [][2]string{
		{
			ComposeSeedInput("m", 1, []string{"a|b"}, "c"),
			ComposeSeedInput("m", 1, []string{"a", "b"}, "c"),
		},
		{
			ComposeSeedInput("m|1", 2, nil, "c"),
			ComposeSeedInput("m", 1, []string{"2"}, "c"),
		},
		{
			ComposeSeedInput("m", 1, []string{`a\`}, "c"),
			ComposeSeedInput("m", 1, []string{`a\|c`}, ""),
		},
		{
			ComposeSeedInput("m", 1, []string{""}, "c"),
			ComposeSeedInput("m", 1, nil, "c"),
		},
	}
	for i, p := range pairs {
		if p[0] == p[1] {
			t.Errorf("pair %d collided: %q", i, p[0])
		}
	}
}

func TestDigest_KnownVector(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Digest("abc"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestMissionDigest_Stable(t *testing.T) {
	mods := []string{"approach:magrail", "breach:pattern", "extraction:freeway"}
	first := MissionDigest("neon_vault_001", 1000, mods, "C001")
	for i := 0; i < 5; i++ {
		if got := MissionDigest("neon_vault_001", 1000, mods, "C001"); got != first {
			t.Fatalf("run %d: digest drifted %s -> %s", i, first, got)
		}
	}
	if !hexDigest.MatchString(first) {
		t.Errorf("expected 64 hex chars, got %q", first)
	}
	if MissionDigest("neon_vault_001", 1001, mods, "C001") == first {
		t.Error("timestamp must change the digest")
	}
	if MissionDigest("neon_vault_001", 1000, mods, "C002") == first {
		t.Error("contributor must change the digest")
	}
}

func TestPair(t *testing.T) {
	s := Pair("abc", "sig")
	if s.String() != "abc.sig" || s.Version != Version {
		t.Errorf("unexpected signed seed %+v", s)
	}
	if Pair("abc", "").String() != "abc" {
		t.Error("unsigned seed should render bare digest")
	}
}

func TestStream_Deterministic(t *testing.T) {
	d := MissionDigest("m1", 1000, []string{"a", "b"}, "C001")
	a := NewStream(d, "remix")
	b := NewStream(d, "remix")
	for i := 0; i < 100; i++ {
		x, y := a.Float64(), b.Float64()
		if x != y {
			t.Fatalf("draw %d diverged: %f vs %f", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("draw %d out of range: %f", i, x)
		}
	}
}

func TestStream_SaltSeparates(t *testing.T) {
	d := Digest("x")
	a := NewStream(d, "spawns")
	b := NewStream(d, "weather")
	same := true
	for i := 0; i < 8; i++ {
		if a.Next() != b.Next() {
			same = false
		}
	}
	if same {
		t.Fatal("different salts produced identical streams")
	}
}

func TestStream_Intn(t *testing.T) {
	s := NewStream(Digest("y"), "")
	for i := 0; i < 200; i++ {
		if v := s.Intn(7); v < 0 || v >= 7 {
			t.Fatalf("Intn out of range: %d", v)
		}
	}
	if s.Intn(0) != 0 {
		t.Error("Intn(0) should return 0")
	}
}
