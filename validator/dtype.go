package validator

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
)

// canonCache memoizes the (rarely-changing) set of Simple descriptors
// seen across one process, keyed by their canonical string form. The
// same handful of dtypes ("<f8", "<i4", ...) recur across every
// sibling attribute and dataset in a validation run, so canonicalizing
// once per process rather than per comparison is a measurable win on
// wide schemas.
var canonCache, _ = lru.New[string, dtype.Simple](512)

func canonicalizeSimple(s dtype.Simple) dtype.Simple {
	key := s.Key()
	if cached, ok := canonCache.Get(key); ok {
		return cached
	}
	canonCache.Add(key, s)
	return s
}

// matchDtype reports whether actual satisfies the dtype constraint
// want. A schema node with no dtype constraint (want == nil) always
// matches.
func matchDtype(actual dtype.Descriptor, want *dtype.Descriptor) bool {
	if want == nil {
		return true
	}
	a, w := actual, *want
	if !a.IsCompound {
		a.Simple = canonicalizeSimple(a.Simple)
	}
	if !w.IsCompound {
		w.Simple = canonicalizeSimple(w.Simple)
	}
	return dtype.Equal(a, w)
}
