package validator

import "github.com/hartzell-stephen-me/hdf5schema/tree"

// matchShape reports whether actual satisfies want: equal rank, and
// each dimension either a -1 wildcard or an exact match. A rank-0
// schema shape ([]) only matches a scalar (rank-0) actual shape.
func matchShape(actual tree.Shape, want []int) bool {
	if want == nil {
		return true
	}
	if len(actual) != len(want) {
		return false
	}
	for i, w := range want {
		if w == -1 {
			continue
		}
		if actual[i] != w {
			return false
		}
	}
	return true
}
