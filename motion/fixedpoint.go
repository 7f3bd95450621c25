package motion

// mulU32X32H32 computes the upper 32 bits of a*b, rounded to nearest,
// via a 64-bit intermediate. This is the software equivalent of the
// source firmware's MultiU32X32toH32 macro: targets
// without a native 32x32->64 multiply would need a manual widening
// helper here, but Go's uint64 arithmetic already does the widening.
func mulU32X32H32(a, b uint32) uint32 {
	return uint32((uint64(a)*uint64(b) + 0x80000000) >> 32)
}
