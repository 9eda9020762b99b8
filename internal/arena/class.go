package arena

import "math/bits"

const (
	// MinClassSize is the smallest slot size.
	MinClassSize = 8
	// MaxClassSize is the largest slot size; bigger requests take the large path.
	MaxClassSize = 1024
	// NumClasses is the number of size classes.
	NumClasses = 8
)

// Classes lists the slot size of every class, smallest first.
var Classes = [NumClasses]uintptr{8, 16, 32, 64, 128, 256, 512, 1024}

// ClassFor returns the index of the smallest class whose slots hold size
// bytes. It returns false when size exceeds MaxClassSize.
func ClassFor(size uintptr) (int, bool) {
	if size > MaxClassSize {
		return -1, false
	}
	if size <= MinClassSize {
		return 0, true
	}
	return bits.Len(uint(size-1)) - 3, true
}

// ClassOf returns the class index of an arena with the given item size.
func ClassOf(itemSize uintptr) int {
	return bits.TrailingZeros(uint(itemSize)) - 3
}
