// Package tree defines the read-only contract the validator uses to
// walk a hierarchical data container: groups, datasets, and attribute
// maps. It is deliberately a pure interface package — opening a real
// on-disk container is an external concern, so no implementation here
// touches a filesystem; see tree/memtree and tree/jsonfixture for the
// two in-repo stand-ins.
package tree

import "github.com/hartzell-stephen-me/hdf5schema/dtype"

// Kind distinguishes the two node shapes a container can hold.
type Kind int

const (
	KindGroup Kind = iota
	KindDataset
)

func (k Kind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "dataset"
}

// Shape is the ordered list of actual dimension extents of a dataset.
type Shape []int

// Value is a single element value read from a dataset or carried by
// an attribute: one of nil, bool, int64, uint64, float64, or string.
type Value any

// AttrValue is a named attribute: a dtype descriptor plus either a
// scalar or a flat 1-D array of Value.
type AttrValue struct {
	Name   string
	Dtype  dtype.Descriptor
	Scalar bool
	Values []Value // len == 1 for scalars
}

// Node is any member of the tree: a Group or a Dataset. Path is the
// absolute, slash-separated path from the root.
type Node interface {
	Path() string
	Kind() Kind
	Attrs() ([]AttrValue, error)
}

// Group is an interior node with named children.
type Group interface {
	Node
	// Children returns the group's direct children in adapter-defined
	// (unordered) iteration order. The walker sorts by name itself when
	// it needs stable error ordering.
	Children() ([]Child, error)
}

// Child pairs a child's name with its handle.
type Child struct {
	Name string
	Node Node
}

// Dataset is a leaf node with a typed, shaped payload.
type Dataset interface {
	Node
	Dtype() (dtype.Descriptor, error)
	Shape() (Shape, error)
	// ReadValues streams the dataset's elements. Only invoked when the
	// schema being checked against this dataset carries a value
	// constraint (enum, const, minLength, maxLength, pattern, format).
	ReadValues() ([]Value, error)
}

// AsGroup and AsDataset are convenience narrowing helpers; callers
// still branch on Kind() first.
func AsGroup(n Node) (Group, bool) {
	g, ok := n.(Group)
	return g, ok && n.Kind() == KindGroup
}

func AsDataset(n Node) (Dataset, bool) {
	d, ok := n.(Dataset)
	return d, ok && n.Kind() == KindDataset
}
