// Package jsonfixture builds a tree.Node from a small JSON document
// describing groups, datasets, attributes, dtypes, shapes, and values.
// It stands in for a real container reader in the bundled CLI demo and
// in integration tests that want a textual fixture instead of a
// Go-built tree/memtree.
//
// Document shape:
//
//	{
//	  "type": "group",
//	  "attrs": [{"name": "units", "dtype": "S8", "value": "meters"}],
//	  "children": {
//	    "data": {"type": "dataset", "dtype": "<f8", "shape": [10, 5]},
//	    "sensor_1": {"type": "group", "children": {...}}
//	  }
//	}
package jsonfixture

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
)

// Build parses doc and returns the root node: a group, unless the
// document's top-level "type" is "dataset".
func Build(doc []byte) (tree.Node, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("jsonfixture: invalid JSON")
	}
	root := gjson.ParseBytes(doc)
	return buildNode(root, "/")
}

func buildNode(v gjson.Result, path string) (tree.Node, error) {
	typ := v.Get("type").String()
	attrs, err := buildAttrs(v.Get("attrs"))
	if err != nil {
		return nil, fmt.Errorf("jsonfixture: %s: %w", path, err)
	}
	switch typ {
	case "", "group":
		g := &jsonGroup{path: path, attrs: attrs}
		v.Get("children").ForEach(func(key, val gjson.Result) bool {
			childPath := joinPath(path, key.String())
			child, buildErr := buildNode(val, childPath)
			if buildErr != nil {
				err = buildErr
				return false
			}
			g.children = append(g.children, tree.Child{Name: key.String(), Node: child})
			return true
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case "dataset":
		dt, derr := parseDtype(v.Get("dtype"))
		if derr != nil {
			return nil, fmt.Errorf("jsonfixture: %s: %w", path, derr)
		}
		var shape tree.Shape
		for _, dim := range v.Get("shape").Array() {
			shape = append(shape, int(dim.Int()))
		}
		var values []tree.Value
		for _, elem := range v.Get("values").Array() {
			values = append(values, rawValue(elem))
		}
		return &jsonDataset{path: path, dtype: dt, shape: shape, values: values, attrs: attrs}, nil
	default:
		return nil, fmt.Errorf("jsonfixture: %s: unknown node type %q", path, typ)
	}
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func buildAttrs(v gjson.Result) ([]tree.AttrValue, error) {
	var out []tree.AttrValue
	var err error
	v.ForEach(func(_, val gjson.Result) bool {
		name := val.Get("name").String()
		dt, derr := parseDtype(val.Get("dtype"))
		if derr != nil {
			err = fmt.Errorf("attr %q: %w", name, derr)
			return false
		}
		if arr := val.Get("values"); arr.Exists() {
			var vs []tree.Value
			for _, e := range arr.Array() {
				vs = append(vs, rawValue(e))
			}
			out = append(out, tree.AttrValue{Name: name, Dtype: dt, Scalar: false, Values: vs})
		} else {
			out = append(out, tree.AttrValue{Name: name, Dtype: dt, Scalar: true, Values: []tree.Value{rawValue(val.Get("value"))}})
		}
		return true
	})
	return out, err
}

func rawValue(v gjson.Result) tree.Value {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		return v.String()
	case gjson.True, gjson.False:
		return v.Bool()
	case gjson.Null:
		return nil
	default:
		return v.Raw
	}
}

func parseDtype(v gjson.Result) (dtype.Descriptor, error) {
	if !v.Exists() {
		return dtype.Descriptor{}, nil
	}
	if v.IsObject() {
		var c dtype.Compound
		c.ItemSize = int(v.Get("itemsize").Int())
		var err error
		v.Get("formats").ForEach(func(_, f gjson.Result) bool {
			simple, perr := dtype.ParseSimple(f.Get("format").String())
			if perr != nil {
				err = perr
				return false
			}
			c.Fields = append(c.Fields, dtype.Field{
				Name:   f.Get("name").String(),
				Format: simple,
				Offset: int(f.Get("offset").Int()),
			})
			return true
		})
		if err != nil {
			return dtype.Descriptor{}, err
		}
		return dtype.Descriptor{IsCompound: true, Compound: c}, nil
	}
	simple, err := dtype.ParseSimple(v.String())
	if err != nil {
		return dtype.Descriptor{}, err
	}
	return dtype.Descriptor{Simple: simple}, nil
}

type jsonGroup struct {
	path     string
	children []tree.Child
	attrs    []tree.AttrValue
}

func (g *jsonGroup) Path() string                        { return g.path }
func (g *jsonGroup) Kind() tree.Kind                      { return tree.KindGroup }
func (g *jsonGroup) Attrs() ([]tree.AttrValue, error)     { return g.attrs, nil }
func (g *jsonGroup) Children() ([]tree.Child, error)      { return g.children, nil }

type jsonDataset struct {
	path   string
	dtype  dtype.Descriptor
	shape  tree.Shape
	values []tree.Value
	attrs  []tree.AttrValue
}

func (d *jsonDataset) Path() string                    { return d.path }
func (d *jsonDataset) Kind() tree.Kind                  { return tree.KindDataset }
func (d *jsonDataset) Attrs() ([]tree.AttrValue, error) { return d.attrs, nil }
func (d *jsonDataset) Dtype() (dtype.Descriptor, error) { return d.dtype, nil }
func (d *jsonDataset) Shape() (tree.Shape, error)       { return d.shape, nil }
func (d *jsonDataset) ReadValues() ([]tree.Value, error) { return d.values, nil }
