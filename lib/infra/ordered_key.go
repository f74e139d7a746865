package infra

type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is a constraint that permits any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer is a constraint that permits any integer type.
type Integer interface {
	Signed | Unsigned
}

// Float is a constraint that permits any floating-point type.
type Float interface {
	~float32 | ~float64
}

// OrderedKey
// byte => ~uint8
type OrderedKey interface {
	Integer | Float | ~string
}

// LessFunc is the injected ordering capability.
// It must be a strict weak ordering. Two keys are treated as
// equal when neither is less than the other.
type LessFunc[K any] func(i, j K) bool

// OrderedLess is the natural ascending order of the ordered keys.
func OrderedLess[K OrderedKey](i, j K) bool {
	return i < j
}

// Reverse turns an ascending order into a descending one.
func (less LessFunc[K]) Reverse() LessFunc[K] {
	return func(i, j K) bool {
		return less(j, i)
	}
}

// Equal reports whether i and j are equivalent under less.
func (less LessFunc[K]) Equal(i, j K) bool {
	return !less(i, j) && !less(j, i)
}

// Compare maps the less-than relation onto the three way result.
//  1. i == j, return 0
//  2. i > j, return 1, turn to right part.
//  3. i < j, return -1, turn to left part.
func (less LessFunc[K]) Compare(i, j K) int {
	if less(i, j) {
		return -1
	} else if less(j, i) {
		return 1
	}
	return 0
}
