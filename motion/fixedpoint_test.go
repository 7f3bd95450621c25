package motion

import "testing"

func TestMulU32X32H32Basic(t *testing.T) {
	cases := []struct {
		a, b uint32
		want uint32
	}{
		{0, 0, 0},
		{1 << 31, 2, 1},
		{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFE},
		{1000, 1 << 20, 0}, // small product rounds down to 0 in the high word
	}
	for _, c := range cases {
		got := mulU32X32H32(c.a, c.b)
		if got != c.want {
			t.Errorf("mulU32X32H32(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestMulU32X32H32RoundsToNearest(t *testing.T) {
	// a*b sits exactly on a half-boundary of the high word; the +0x80000000
	// bias should round it up rather than truncate.
	a := uint32(1 << 31)
	b := uint32(3)
	got := mulU32X32H32(a, b)
	want := uint32(2) // (1<<31)*3 = 3<<31 = 0x180000000; high word 1, +bias rounds to 2
	if got != want {
		t.Errorf("mulU32X32H32(%d, %d) = %d, want %d", a, b, got, want)
	}
}
