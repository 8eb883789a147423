package validator

import (
	"fmt"
	"sort"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
)

// visitKey is the cycle-guard key: a resolved schema node identity
// paired with the actual path being checked against it.
type visitKey struct {
	node *schema.Node
	path string
}

// Walker drives the depth-first pre-order traversal over a tree.Node
// against a schema.Document. A Walker is scoped to a single Validate
// call; its visit set must not outlive that call.
type Walker struct {
	doc     *schema.Document
	visited map[visitKey]bool
}

// Validate is the engine's top-level entry point. The returned error
// is non-nil only for a schema error found during the walk (an
// unresolved or malformed $ref) or for a failure reading a node's
// attributes, children, dtype, or shape from the tree; other schema
// errors are already rejected by schema.Load. Data nonconformance is
// reported in the returned slice and never causes an error return.
func Validate(root tree.Node, doc *schema.Document) ([]ErrorRecord, error) {
	w := &Walker{doc: doc, visited: map[visitKey]bool{}}
	errs, err := w.eval(root, doc.Root, "/")
	if err != nil {
		log.Debugf("validate: aborted with schema error: %v", err)
		return nil, err
	}
	log.Debugf("validate: %d data errors over %d visited nodes", len(errs), len(w.visited))
	return errs, nil
}

// Seq is a pull-style iterator of ErrorRecord, the shape Go 1.23's
// standard iter.Seq settled on (yield returns false to stop early).
// Kept as a local type rather than importing "iter" since this module
// targets Go 1.21.
type Seq func(yield func(ErrorRecord) bool)

// Errors runs Validate and returns its result as a lazy-looking
// iterator. The walker still does its depth-first emission eagerly
// internally, so a SchemaError surfaces on the first Errors() call
// rather than mid-iteration.
func Errors(root tree.Node, doc *schema.Document) (Seq, error) {
	errs, err := Validate(root, doc)
	if err != nil {
		return nil, err
	}
	return func(yield func(ErrorRecord) bool) {
		for _, e := range errs {
			if !yield(e) {
				return
			}
		}
	}, nil
}

func (w *Walker) eval(actual tree.Node, n *schema.Node, path string) ([]ErrorRecord, error) {
	for n.Type == schema.TypeRef {
		key := visitKey{node: n, path: path}
		if w.visited[key] {
			return nil, nil
		}
		w.visited[key] = true
		resolved, err := w.doc.Resolve(n.RefPointer)
		if err != nil {
			return nil, err
		}
		n = resolved
	}

	key := visitKey{node: n, path: path}
	if w.visited[key] {
		return nil, nil
	}
	w.visited[key] = true

	wantGroup := n.Type == schema.TypeGroup
	isGroup := actual.Kind() == tree.KindGroup
	if wantGroup != isGroup {
		return []ErrorRecord{{
			Path:    path,
			Kind:    KindMismatch,
			Message: fmt.Sprintf("schema expects %s, node is %s", n.Type, actual.Kind()),
		}}, nil
	}

	var errs []ErrorRecord

	if n.Type == schema.TypeDataset {
		ds, _ := tree.AsDataset(actual)
		local, err := w.datasetLocalChecks(ds, n, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, local...)
	}

	attrs, err := actual.Attrs()
	if err != nil {
		return nil, fmt.Errorf("%s: reading attributes: %w", path, err)
	}
	errs = append(errs, checkAttrs(path, n.Attrs, attrs)...)

	if n.Type == schema.TypeGroup {
		grp, _ := tree.AsGroup(actual)
		groupErrs, err := w.evalGroupMembers(grp, n, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, groupErrs...)
	}

	combErrs, err := w.evalCombinators(actual, n, path)
	if err != nil {
		return nil, err
	}
	errs = append(errs, combErrs...)

	return errs, nil
}

func (w *Walker) datasetLocalChecks(ds tree.Dataset, n *schema.Node, path string) ([]ErrorRecord, error) {
	var errs []ErrorRecord

	actualDt, err := ds.Dtype()
	if err != nil {
		return nil, fmt.Errorf("%s: reading dtype: %w", path, err)
	}
	if n.HasDtype && !matchDtype(actualDt, n.Dtype) {
		errs = append(errs, ErrorRecord{Path: path, Kind: DtypeMismatch,
			Message: "dataset has dtype " + dtypeString(actualDt) + ", expected " + dtypeString(*n.Dtype)})
	}

	if n.HasShape {
		actualShape, err := ds.Shape()
		if err != nil {
			return nil, fmt.Errorf("%s: reading shape: %w", path, err)
		}
		if !matchShape(actualShape, n.Shape) {
			errs = append(errs, ErrorRecord{Path: path, Kind: ShapeMismatch,
				Message: fmt.Sprintf("dataset has shape %v, expected %v", []int(actualShape), n.Shape)})
		}
	}

	c := datasetConstraints(n)
	if !c.empty() {
		values, err := ds.ReadValues()
		if err != nil {
			errs = append(errs, ErrorRecord{Path: path, Kind: KindIoError, Message: "reading dataset values: " + err.Error()})
		} else {
			errs = append(errs, checkValues(path, c, actualDt, values)...)
		}
	}

	return errs, nil
}

func datasetConstraints(n *schema.Node) valueConstraints {
	return valueConstraints{
		HasEnum:   n.HasEnum,
		Enum:      n.Enum,
		HasConst:  n.HasConst,
		Const:     n.Const,
		MinLength: n.MinLength,
		MaxLength: n.MaxLength,
		Pattern:   n.Pattern,
		Format:    n.Format,
	}
}

func (w *Walker) evalGroupMembers(grp tree.Group, n *schema.Node, path string) ([]ErrorRecord, error) {
	children, err := grp.Children()
	if err != nil {
		return nil, fmt.Errorf("%s: reading children: %w", path, err)
	}

	actualNames := make(map[string]bool, len(children))
	for _, c := range children {
		actualNames[c.Name] = true
	}

	errs := missingRequiredMembers(n, actualNames)
	for i := range errs {
		errs[i].Path = path
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })

	for _, c := range children {
		childSchemas := effectiveSchemas(n, c.Name)
		childPath := joinPath(path, c.Name)
		for _, sn := range childSchemas {
			sub, err := w.eval(c.Node, sn, childPath)
			if err != nil {
				return nil, err
			}
			errs = append(errs, sub...)
		}
	}

	return errs, nil
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
