package validator

import (
	"github.com/hartzell-stephen-me/hdf5schema/dtype"
	"github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
)

// checkAttrs validates actual's attributes against specs. It applies
// to any node kind.
func checkAttrs(path string, specs []*schema.AttrSpec, actual []tree.AttrValue) []ErrorRecord {
	if len(specs) == 0 {
		return nil
	}
	byName := make(map[string]tree.AttrValue, len(actual))
	for _, a := range actual {
		byName[a.Name] = a
	}

	var out []ErrorRecord
	for _, spec := range specs {
		attr, present := byName[spec.Name]
		if !present {
			if spec.Required {
				out = append(out, newError(path, MissingAttribute, "required attribute "+spec.Name+" is absent"))
			}
			continue
		}
		if spec.HasDtype && !matchDtype(attr.Dtype, spec.Dtype) {
			out = append(out, ErrorRecord{Path: path, Kind: DtypeMismatch,
				Message: "attribute " + spec.Name + " has dtype " + dtypeString(attr.Dtype) + ", expected " + dtypeString(*spec.Dtype),
				Context: map[string]any{"attr": spec.Name}})
		}
		if spec.HasShape && !matchShape(attrShape(attr), spec.Shape) {
			out = append(out, ErrorRecord{Path: path, Kind: ShapeMismatch,
				Message: "attribute " + spec.Name + " has unexpected shape",
				Context: map[string]any{"attr": spec.Name}})
		}
		out = append(out, checkValues(path, attrConstraints(spec), attr.Dtype, attr.Values)...)
	}
	return out
}

func attrConstraints(spec *schema.AttrSpec) valueConstraints {
	return valueConstraints{
		HasEnum:   spec.HasEnum,
		Enum:      spec.Enum,
		HasConst:  spec.HasConst,
		Const:     spec.Const,
		MinLength: spec.MinLength,
		MaxLength: spec.MaxLength,
		Pattern:   spec.Pattern,
		Format:    spec.Format,
	}
}

// attrShape derives the rank-0-or-1 shape of an attribute value: a
// scalar attribute is rank 0, an array attribute is rank 1 with extent
// equal to its flat element count.
func attrShape(a tree.AttrValue) tree.Shape {
	if a.Scalar {
		return tree.Shape{}
	}
	return tree.Shape{len(a.Values)}
}

func dtypeString(d dtype.Descriptor) string {
	if d.IsCompound {
		return "<compound>"
	}
	return d.Simple.String()
}
