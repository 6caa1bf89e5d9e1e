package math

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp[uint32](5, 1, 3); got != 3 {
		t.Errorf("Clamp high = %d", got)
	}
	if got := Clamp[uint32](0, 1, 3); got != 1 {
		t.Errorf("Clamp low = %d", got)
	}
	if got := Clamp(0.5, 0.0, 1.0); got != 0.5 {
		t.Errorf("Clamp float = %v", got)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ v, a, want uint64 }{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{13, 0, 13},
	}
	for _, c := range cases {
		if got := AlignUp(c.v, c.a); got != c.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", c.v, c.a, got, c.want)
		}
	}
	if Max(3, 9) != 9 {
		t.Error("Max")
	}
}
