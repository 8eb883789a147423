package validator

import (
	"fmt"
	"sort"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
)

// evalCombinators evaluates allOf/anyOf/oneOf/not, if/then/else, and
// dependentRequired/dependentSchemas against the same actual node and
// path as the enclosing checks. It runs after local, attribute, and
// member checks.
func (w *Walker) evalCombinators(actual tree.Node, n *schema.Node, path string) ([]ErrorRecord, error) {
	var errs []ErrorRecord

	if !n.Combinators.Empty() {
		e, err := w.evalAllOf(actual, n.Combinators.AllOf, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e...)

		e, err = w.evalAnyOf(actual, n.Combinators.AnyOf, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e...)

		e, err = w.evalOneOf(actual, n.Combinators.OneOf, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e...)

		e, err = w.evalNot(actual, n.Combinators.Not, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e...)
	}

	if n.Conditional.If != nil {
		e, err := w.evalConditional(actual, n.Conditional, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e...)
	}

	if !n.Dependents.Empty() {
		e, err := w.evalDependentRequired(actual, n.Dependents.Required, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e...)

		e, err = w.evalDependentSchemas(actual, n.Dependents.Schemas, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e...)
	}

	return errs, nil
}

func (w *Walker) evalAllOf(actual tree.Node, branches []*schema.Node, path string) ([]ErrorRecord, error) {
	var errs []ErrorRecord
	for _, branch := range branches {
		sub, err := w.eval(actual, branch, path)
		if err != nil {
			return nil, err
		}
		errs = append(errs, sub...)
	}
	return errs, nil
}

func (w *Walker) evalAnyOf(actual tree.Node, branches []*schema.Node, path string) ([]ErrorRecord, error) {
	if len(branches) == 0 {
		return nil, nil
	}
	var subErrs []ErrorRecord
	for _, branch := range branches {
		sub, err := w.eval(actual, branch, path)
		if err != nil {
			return nil, err
		}
		if len(sub) == 0 {
			return nil, nil
		}
		subErrs = append(subErrs, sub...)
	}
	return []ErrorRecord{{
		Path:      path,
		Kind:      AnyOfFailed,
		Message:   fmt.Sprintf("none of %d anyOf branches matched", len(branches)),
		SubErrors: subErrs,
	}}, nil
}

func (w *Walker) evalOneOf(actual tree.Node, branches []*schema.Node, path string) ([]ErrorRecord, error) {
	if len(branches) == 0 {
		return nil, nil
	}
	var subErrs []ErrorRecord
	var matched []int
	for i, branch := range branches {
		sub, err := w.eval(actual, branch, path)
		if err != nil {
			return nil, err
		}
		if len(sub) == 0 {
			matched = append(matched, i)
		} else {
			subErrs = append(subErrs, sub...)
		}
	}
	switch len(matched) {
	case 1:
		return nil, nil
	case 0:
		return []ErrorRecord{{
			Path:      path,
			Kind:      OneOfNoneMatched,
			Message:   fmt.Sprintf("none of %d oneOf branches matched", len(branches)),
			SubErrors: subErrs,
		}}, nil
	default:
		return []ErrorRecord{{
			Path:    path,
			Kind:    OneOfMultipleMatched,
			Message: fmt.Sprintf("%d oneOf branches matched, expected exactly one", len(matched)),
			Context: map[string]any{"matchedIndexes": matched},
		}}, nil
	}
}

func (w *Walker) evalNot(actual tree.Node, branch *schema.Node, path string) ([]ErrorRecord, error) {
	if branch == nil {
		return nil, nil
	}
	sub, err := w.eval(actual, branch, path)
	if err != nil {
		return nil, err
	}
	if len(sub) > 0 {
		return nil, nil
	}
	return []ErrorRecord{{Path: path, Kind: NotFailed, Message: "not branch matched"}}, nil
}

// evalConditional implements if/then/else. The if-branch is evaluated
// silently: its errors decide which of then/else runs, but are never
// themselves reported.
func (w *Walker) evalConditional(actual tree.Node, c schema.Conditional, path string) ([]ErrorRecord, error) {
	ifErrs, err := w.eval(actual, c.If, path)
	if err != nil {
		return nil, err
	}
	if len(ifErrs) == 0 {
		if c.Then == nil {
			return nil, nil
		}
		return w.eval(actual, c.Then, path)
	}
	if c.Else == nil {
		return nil, nil
	}
	return w.eval(actual, c.Else, path)
}

// isPresent reports whether name names an attribute of actual, or (for
// a group) a direct child.
func (w *Walker) isPresent(actual tree.Node, name string) (bool, error) {
	attrs, err := actual.Attrs()
	if err != nil {
		return false, err
	}
	for _, a := range attrs {
		if a.Name == name {
			return true, nil
		}
	}
	if grp, ok := tree.AsGroup(actual); ok {
		children, err := grp.Children()
		if err != nil {
			return false, err
		}
		for _, c := range children {
			if c.Name == name {
				return true, nil
			}
		}
	}
	return false, nil
}

func (w *Walker) evalDependentRequired(actual tree.Node, rules map[string][]string, path string) ([]ErrorRecord, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	var errs []ErrorRecord
	for _, name := range sortedKeys(rules) {
		present, err := w.isPresent(actual, name)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		var missing []string
		for _, dep := range rules[name] {
			ok, err := w.isPresent(actual, dep)
			if err != nil {
				return nil, err
			}
			if !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, ErrorRecord{Path: path, Kind: DependentRequiredFailed,
				Message: fmt.Sprintf("%s present but missing dependents %v", name, missing),
				Context: map[string]any{"name": name, "missing": missing}})
		}
	}
	return errs, nil
}

func (w *Walker) evalDependentSchemas(actual tree.Node, rules map[string]*schema.Node, path string) ([]ErrorRecord, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	var errs []ErrorRecord
	for _, name := range sortedNodeKeys(rules) {
		present, err := w.isPresent(actual, name)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		sub, err := w.eval(actual, rules[name], path)
		if err != nil {
			return nil, err
		}
		if len(sub) > 0 {
			errs = append(errs, ErrorRecord{Path: path, Kind: DependentSchemasFailed,
				Message:   "dependentSchemas for " + name + " failed",
				Context:   map[string]any{"name": name},
				SubErrors: sub})
		}
	}
	return errs, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedNodeKeys(m map[string]*schema.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
