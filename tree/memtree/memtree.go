// Package memtree is a hand-built in-memory implementation of the
// tree contract, for unit tests that construct fixtures directly in
// Go rather than from a JSON document.
package memtree

import (
	"path"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
)

// Group is a mutable in-memory group node; build one with NewGroup and
// populate it with AddGroup/AddDataset/AddAttr before validating.
type Group struct {
	path     string
	children []tree.Child
	attrs    []tree.AttrValue
}

// NewGroup creates the root group at "/".
func NewGroup() *Group {
	return &Group{path: "/"}
}

func (g *Group) Path() string    { return g.path }
func (g *Group) Kind() tree.Kind { return tree.KindGroup }

func (g *Group) Attrs() ([]tree.AttrValue, error) { return g.attrs, nil }

func (g *Group) Children() ([]tree.Child, error) { return g.children, nil }

// AddAttr appends an attribute to this node.
func (g *Group) AddAttr(a tree.AttrValue) *Group {
	g.attrs = append(g.attrs, a)
	return g
}

// AddGroup creates, links, and returns a new child group named name.
func (g *Group) AddGroup(name string) *Group {
	child := &Group{path: childPath(g.path, name)}
	g.children = append(g.children, tree.Child{Name: name, Node: child})
	return child
}

// AddDataset creates, links, and returns a new child dataset named name.
func (g *Group) AddDataset(name string, dt dtype.Descriptor, shape tree.Shape) *Dataset {
	child := &Dataset{path: childPath(g.path, name), dtype: dt, shape: shape}
	g.children = append(g.children, tree.Child{Name: name, Node: child})
	return child
}

func childPath(parent, name string) string {
	return path.Join(parent, name)
}

// Dataset is a mutable in-memory dataset node.
type Dataset struct {
	path   string
	dtype  dtype.Descriptor
	shape  tree.Shape
	values []tree.Value
	attrs  []tree.AttrValue
}

func (d *Dataset) Path() string    { return d.path }
func (d *Dataset) Kind() tree.Kind { return tree.KindDataset }

func (d *Dataset) Attrs() ([]tree.AttrValue, error) { return d.attrs, nil }

func (d *Dataset) Dtype() (dtype.Descriptor, error) { return d.dtype, nil }
func (d *Dataset) Shape() (tree.Shape, error)       { return d.shape, nil }

func (d *Dataset) ReadValues() ([]tree.Value, error) { return d.values, nil }

// WithValues sets the dataset's element payload (used by value
// constraint checks: enum/const/pattern/format/min-maxLength).
func (d *Dataset) WithValues(vs ...tree.Value) *Dataset {
	d.values = vs
	return d
}

// AddAttr appends an attribute to this node.
func (d *Dataset) AddAttr(a tree.AttrValue) *Dataset {
	d.attrs = append(d.attrs, a)
	return d
}

// FailingDataset wraps a Dataset so ReadValues always fails, for
// exercising the IoError path.
type FailingDataset struct {
	*Dataset
	Err error
}

func (f *FailingDataset) ReadValues() ([]tree.Value, error) { return nil, f.Err }
