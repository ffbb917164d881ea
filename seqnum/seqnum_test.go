package seqnum

import "testing"

func TestAddIdentity(t *testing.T) {
	for _, s := range []SeqNum{0, 1, 65535, 32768} {
		if got := Add(s, 0); got != s {
			t.Errorf("Add(%d, 0) = %d, want %d", s, got, s)
		}
	}
}

func TestSubUndoesAdd(t *testing.T) {
	for _, s := range []SeqNum{0, 42, 65000} {
		for _, k := range []uint16{1, 100, 32767} {
			got := Sub(Add(s, k), k)
			if got != s {
				t.Errorf("Sub(Add(%d,%d),%d) = %d, want %d", s, k, k, got, s)
			}
		}
	}
}

func TestCmpReflexive(t *testing.T) {
	for _, s := range []SeqNum{0, 1, 65535} {
		if Cmp(s, s) != 0 {
			t.Errorf("Cmp(%d,%d) != 0", s, s)
		}
	}
}

func TestCmpAntisymmetric(t *testing.T) {
	cases := [][2]SeqNum{{0, 1}, {65535, 0}, {100, 32000}}
	for _, c := range cases {
		a, b := c[0], c[1]
		if Cmp(a, b) != -Cmp(b, a) {
			t.Errorf("Cmp(%d,%d)=%d, Cmp(%d,%d)=%d, not negations", a, b, Cmp(a, b), b, a, Cmp(b, a))
		}
	}
}

func TestCmpWraparound(t *testing.T) {
	// 65535 is "before" 0 in forward order (0 is one step after 65535).
	if Cmp(65535, 0) != -1 {
		t.Errorf("Cmp(65535,0) = %d, want -1 (0 is after 65535)", Cmp(65535, 0))
	}
	if Cmp(0, 65535) != 1 {
		t.Errorf("Cmp(0,65535) = %d, want 1", Cmp(0, 65535))
	}
}

func TestCmpTriangle(t *testing.T) {
	a, b, c := SeqNum(10), SeqNum(20), SeqNum(30)
	if Cmp(a, b) >= 0 || Cmp(b, c) >= 0 {
		t.Fatal("setup invariant broken")
	}
	if Cmp(a, c) >= 0 {
		t.Errorf("Cmp(%d,%d) = %d, want < 0 by transitivity", a, c, Cmp(a, c))
	}
}

func TestInWindow(t *testing.T) {
	if !InWindow(10, 14, 8) {
		t.Error("14 should be in (10, 18]")
	}
	if InWindow(10, 10, 8) {
		t.Error("10 should not be in (10, 18] (not strictly after)")
	}
	if InWindow(10, 19, 8) {
		t.Error("19 should not be in (10, 18]")
	}
	// wraparound
	if !InWindow(65530, 2, 8) {
		t.Error("2 should be in (65530, 65538=2] across wraparound")
	}
}
