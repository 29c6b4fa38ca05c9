// Package rangeval packs and unpacks the dimension height range the game
// passes around as a single 32-bit value: the upper bound lives in the high
// half and the lower bound in the low half, both signed.
package rangeval

// Granularity is the vertical size of a sub-chunk. Both bounds of a height
// range must be a multiple of it.
const Granularity = 16

// MaxAligned is the largest int16 that is a multiple of Granularity.
const MaxAligned = 32752

// Combine packs high into the upper 16 bits and low into the lower 16 bits.
func Combine(high, low int16) int32 {
	return int32(high)<<16 | int32(uint16(low))
}

// Split is the inverse of Combine.
func Split(v int32) (high, low int16) {
	return int16(v >> 16), int16(v)
}

// Align moves v to a multiple of Granularity. With roundUp it moves towards
// positive infinity, otherwise towards negative infinity. Values already
// aligned are returned unchanged. Ceiling a value above MaxAligned would leave
// the int16 range, so those saturate at MaxAligned.
func Align(v int16, roundUp bool) int16 {
	r := int32(v) % Granularity
	if r < 0 {
		r += Granularity
	}
	if r == 0 {
		return v
	}
	if roundUp {
		up := int32(v) + Granularity - r
		if up > MaxAligned {
			return MaxAligned
		}
		return int16(up)
	}
	return int16(int32(v) - r)
}

// IsAligned reports whether v is already a multiple of Granularity.
func IsAligned(v int16) bool {
	return v%Granularity == 0
}
