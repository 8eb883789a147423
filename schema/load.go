package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
)

// Load parses, meta-schema-checks, and builds the AST for a schema
// document, populating the $defs registry. Regexes in pattern and
// patternMembers are compiled eagerly here; a bad regex or malformed
// compound dtype fails the call with a SchemaError. Alongside the
// decoded map[string]any (still the data buildNode walks), Load keeps
// a parallel gjson.Result tree purely to recover the source key order
// of patternMembers objects, which json.Unmarshal into a map discards;
// tree/jsonfixture uses the same gjson.ForEach trick to preserve
// object-key order from a JSON document.
func Load(data []byte) (*Document, error) {
	if err := checkAgainstMeta(data); err != nil {
		log.Debugf("schema: meta-schema check failed: %v", err)
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaError{Msg: "invalid JSON: " + err.Error(), Err: err}
	}
	gv := gjson.ParseBytes(data)

	doc := &Document{
		Defs:         map[string]*Node{},
		raw:          raw,
		rootGV:       gv,
		resolveCache: map[string]*Node{},
	}

	rootType := TypeGroup
	if t, _ := raw["type"].(string); t == "dataset" {
		rootType = TypeDataset
	}
	root, err := buildNode(raw, gv, "#", rootType)
	if err != nil {
		return nil, err
	}
	doc.Root = root

	if defsRaw, ok := raw["$defs"].(map[string]any); ok {
		gvDefs := gv.Get("$defs").Map()
		names := make([]string, 0, len(defsRaw))
		for name := range defsRaw {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry, ok := defsRaw[name].(map[string]any)
			if !ok {
				return nil, &SchemaError{Path: "#/$defs/" + name, Msg: "$defs entry must be an object"}
			}
			defType := TypeGroup
			if t, _ := entry["type"].(string); t == "dataset" {
				defType = TypeDataset
			}
			node, err := buildNode(entry, gvDefs[name], "#/$defs/"+name, defType)
			if err != nil {
				return nil, err
			}
			doc.Defs[name] = node
		}
	}

	log.Debugf("schema: loaded document with %d $defs entries", len(doc.Defs))
	return doc, nil
}

// buildNode dispatches on "type", building the tagged-variant Node.
// defaultType supplies the kind for combinator/conditional/dependent
// sub-schemas that omit "type", inheriting the enclosing kind. gv is
// the gjson.Result covering the same JSON object as raw, used only to
// recover source declaration order for patternMembers further down.
func buildNode(raw map[string]any, gv gjson.Result, docPath string, defaultType NodeType) (*Node, error) {
	if refAny, ok := raw["$ref"]; ok {
		ref, ok := refAny.(string)
		if !ok || ref == "" {
			return nil, &SchemaError{Path: docPath, Msg: "$ref must be a non-empty string"}
		}
		return &Node{Type: TypeRef, RefPointer: ref, docPath: docPath}, nil
	}

	nodeType := defaultType
	if t, ok := raw["type"]; ok {
		ts, ok := t.(string)
		if !ok {
			return nil, &SchemaError{Path: docPath, Msg: "type must be a string"}
		}
		switch ts {
		case "group":
			nodeType = TypeGroup
		case "dataset":
			nodeType = TypeDataset
		default:
			return nil, &SchemaError{Path: docPath, Msg: fmt.Sprintf("unknown type %q", ts)}
		}
	}

	n := &Node{Type: nodeType, docPath: docPath}

	if err := applyAnnotations(n, raw); err != nil {
		return nil, err
	}
	if err := applyValueConstraints(n, raw, docPath); err != nil {
		return nil, err
	}
	if err := applyDtypeShape(n, raw, docPath); err != nil {
		return nil, err
	}
	if err := applyAttrs(n, raw, docPath); err != nil {
		return nil, err
	}
	if err := applyCombinators(n, raw, gv, docPath, nodeType); err != nil {
		return nil, err
	}
	if err := applyConditional(n, raw, gv, docPath, nodeType); err != nil {
		return nil, err
	}
	if err := applyDependents(n, raw, gv, docPath, nodeType); err != nil {
		return nil, err
	}

	if nodeType == TypeGroup {
		if err := applyMembers(n, raw, gv, docPath); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func applyAnnotations(n *Node, raw map[string]any) error {
	if s, ok := raw["description"].(string); ok {
		n.Annotations.Description = s
	}
	if s, ok := raw["$comment"].(string); ok {
		n.Annotations.Comment = s
	}
	if s, ok := raw["$id"].(string); ok {
		n.Annotations.ID = s
	}
	return nil
}

func applyValueConstraints(n *Node, raw map[string]any, docPath string) error {
	if e, ok := raw["enum"]; ok {
		arr, ok := e.([]any)
		if !ok {
			return &SchemaError{Path: docPath, Msg: "enum must be an array"}
		}
		n.Enum, n.HasEnum = arr, true
	}
	if c, ok := raw["const"]; ok {
		if _, isArr := c.([]any); isArr {
			return &SchemaError{Path: docPath, Msg: "array-valued const is not supported (see DESIGN.md open question)"}
		}
		n.Const, n.HasConst = c, true
	}
	if v, ok := raw["minLength"]; ok {
		iv, err := asInt(v, docPath, "minLength")
		if err != nil {
			return err
		}
		n.MinLength = &iv
	}
	if v, ok := raw["maxLength"]; ok {
		iv, err := asInt(v, docPath, "maxLength")
		if err != nil {
			return err
		}
		n.MaxLength = &iv
	}
	if p, ok := raw["pattern"].(string); ok {
		re, err := regexp.Compile(p)
		if err != nil {
			return &SchemaError{Path: docPath, Msg: "malformed pattern regex: " + err.Error(), Err: err}
		}
		n.Pattern, n.PatternSrc = re, p
	}
	if f, ok := raw["format"].(string); ok {
		n.Format = f
	}
	return nil
}

func asInt(v any, docPath, key string) (int, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, &SchemaError{Path: docPath, Msg: key + " must be a number"}
	}
	return int(f), nil
}

func applyDtypeShape(n *Node, raw map[string]any, docPath string) error {
	if dt, ok := raw["dtype"]; ok {
		desc, err := parseDtypeAny(dt, docPath)
		if err != nil {
			return err
		}
		n.Dtype, n.HasDtype = &desc, true
	}
	if sh, ok := raw["shape"].([]any); ok {
		shape := make([]int, len(sh))
		for i, d := range sh {
			f, ok := d.(float64)
			if !ok {
				return &SchemaError{Path: docPath, Msg: "shape entries must be integers"}
			}
			shape[i] = int(f)
		}
		n.Shape, n.HasShape = shape, true
	}
	return nil
}

func parseDtypeAny(v any, docPath string) (dtype.Descriptor, error) {
	switch t := v.(type) {
	case string:
		s, err := dtype.ParseSimple(t)
		if err != nil {
			return dtype.Descriptor{}, &SchemaError{Path: docPath, Msg: err.Error(), Err: err}
		}
		return dtype.Descriptor{Simple: s}, nil
	case []any:
		// [{"name": ..., "dtype": "<f8"}, ...] shorthand list form.
		var c dtype.Compound
		offset := 0
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return dtype.Descriptor{}, &SchemaError{Path: docPath, Msg: "dtype list entries must be objects"}
			}
			name, _ := m["name"].(string)
			fmtStr, _ := m["dtype"].(string)
			simple, err := dtype.ParseSimple(fmtStr)
			if err != nil {
				return dtype.Descriptor{}, &SchemaError{Path: docPath, Msg: err.Error(), Err: err}
			}
			c.Fields = append(c.Fields, dtype.Field{Name: name, Format: simple, Offset: offset})
			offset += simple.Size
		}
		c.ItemSize = offset
		return dtype.Descriptor{IsCompound: true, Compound: c}, nil
	case map[string]any:
		formatsAny, _ := t["formats"].([]any)
		var c dtype.Compound
		for _, item := range formatsAny {
			m, ok := item.(map[string]any)
			if !ok {
				return dtype.Descriptor{}, &SchemaError{Path: docPath, Msg: "dtype.formats entries must be objects"}
			}
			name, _ := m["name"].(string)
			fmtStr, _ := m["format"].(string)
			simple, err := dtype.ParseSimple(fmtStr)
			if err != nil {
				return dtype.Descriptor{}, &SchemaError{Path: docPath, Msg: err.Error(), Err: err}
			}
			offset := 0
			if off, ok := m["offset"].(float64); ok {
				offset = int(off)
			}
			c.Fields = append(c.Fields, dtype.Field{Name: name, Format: simple, Offset: offset})
		}
		if itemsize, ok := t["itemsize"].(float64); ok {
			c.ItemSize = int(itemsize)
		}
		if err := dtype.ValidateCompound(c); err != nil {
			return dtype.Descriptor{}, &SchemaError{Path: docPath, Msg: err.Error(), Err: err}
		}
		return dtype.Descriptor{IsCompound: true, Compound: c}, nil
	default:
		return dtype.Descriptor{}, &SchemaError{Path: docPath, Msg: "invalid dtype value"}
	}
}

func applyAttrs(n *Node, raw map[string]any, docPath string) error {
	attrsAny, ok := raw["attrs"].([]any)
	if !ok {
		return nil
	}
	for i, a := range attrsAny {
		m, ok := a.(map[string]any)
		if !ok {
			return &SchemaError{Path: docPath, Msg: "attrs entries must be objects"}
		}
		name, _ := m["name"].(string)
		if name == "" {
			return &SchemaError{Path: docPath, Msg: fmt.Sprintf("attrs[%d] missing name", i)}
		}
		spec := &AttrSpec{Name: name}
		if req, ok := m["required"].(bool); ok {
			spec.Required = req
		}
		if dt, ok := m["dtype"]; ok {
			desc, err := parseDtypeAny(dt, docPath+"/attrs/"+name)
			if err != nil {
				return err
			}
			spec.Dtype, spec.HasDtype = &desc, true
		}
		if sh, ok := m["shape"].([]any); ok {
			shape := make([]int, len(sh))
			for j, d := range sh {
				f, _ := d.(float64)
				shape[j] = int(f)
			}
			spec.Shape, spec.HasShape = shape, true
		}
		if e, ok := m["enum"].([]any); ok {
			spec.Enum, spec.HasEnum = e, true
		}
		if c, ok := m["const"]; ok {
			if _, isArr := c.([]any); isArr {
				return &SchemaError{Path: docPath, Msg: "array-valued const is not supported on attrs (see DESIGN.md open question)"}
			}
			spec.Const, spec.HasConst = c, true
		}
		if v, ok := m["minLength"]; ok {
			iv, err := asInt(v, docPath, "attrs."+name+".minLength")
			if err != nil {
				return err
			}
			spec.MinLength = &iv
		}
		if v, ok := m["maxLength"]; ok {
			iv, err := asInt(v, docPath, "attrs."+name+".maxLength")
			if err != nil {
				return err
			}
			spec.MaxLength = &iv
		}
		if p, ok := m["pattern"].(string); ok {
			re, err := regexp.Compile(p)
			if err != nil {
				return &SchemaError{Path: docPath, Msg: "malformed pattern regex on attr " + name + ": " + err.Error(), Err: err}
			}
			spec.Pattern = re
		}
		if f, ok := m["format"].(string); ok {
			spec.Format = f
		}
		n.Attrs = append(n.Attrs, spec)
	}
	return nil
}

func applyCombinators(n *Node, raw map[string]any, gv gjson.Result, docPath string, kind NodeType) error {
	build := func(v any, sub gjson.Result, path string) (*Node, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, &SchemaError{Path: docPath + path, Msg: "combinator branch must be an object"}
		}
		return buildNode(m, sub, docPath+path, kind)
	}
	buildList := func(key string) ([]*Node, error) {
		arr, ok := raw[key].([]any)
		if !ok {
			return nil, nil
		}
		gvArr := gv.Get(key).Array()
		out := make([]*Node, 0, len(arr))
		for i, v := range arr {
			var sub gjson.Result
			if i < len(gvArr) {
				sub = gvArr[i]
			}
			node, err := build(v, sub, fmt.Sprintf("/%s/%d", key, i))
			if err != nil {
				return nil, err
			}
			out = append(out, node)
		}
		return out, nil
	}

	var err error
	if n.Combinators.AllOf, err = buildList("allOf"); err != nil {
		return err
	}
	if n.Combinators.AnyOf, err = buildList("anyOf"); err != nil {
		return err
	}
	if n.Combinators.OneOf, err = buildList("oneOf"); err != nil {
		return err
	}
	if notAny, ok := raw["not"]; ok {
		node, err := build(notAny, gv.Get("not"), "/not")
		if err != nil {
			return err
		}
		n.Combinators.Not = node
	}
	return nil
}

func applyConditional(n *Node, raw map[string]any, gv gjson.Result, docPath string, kind NodeType) error {
	ifAny, ok := raw["if"]
	if !ok {
		return nil
	}
	build := func(v any, sub gjson.Result, path string) (*Node, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, &SchemaError{Path: docPath + path, Msg: "conditional branch must be an object"}
		}
		return buildNode(m, sub, docPath+path, kind)
	}
	ifNode, err := build(ifAny, gv.Get("if"), "/if")
	if err != nil {
		return err
	}
	n.Conditional.If = ifNode
	if thenAny, ok := raw["then"]; ok {
		thenNode, err := build(thenAny, gv.Get("then"), "/then")
		if err != nil {
			return err
		}
		n.Conditional.Then = thenNode
	}
	if elseAny, ok := raw["else"]; ok {
		elseNode, err := build(elseAny, gv.Get("else"), "/else")
		if err != nil {
			return err
		}
		n.Conditional.Else = elseNode
	}
	return nil
}

func applyDependents(n *Node, raw map[string]any, gv gjson.Result, docPath string, kind NodeType) error {
	if dr, ok := raw["dependentRequired"].(map[string]any); ok {
		n.Dependents.Required = map[string][]string{}
		for name, depsAny := range dr {
			deps, ok := depsAny.([]any)
			if !ok {
				return &SchemaError{Path: docPath, Msg: "dependentRequired entries must be arrays"}
			}
			list := make([]string, 0, len(deps))
			for _, d := range deps {
				s, ok := d.(string)
				if !ok {
					return &SchemaError{Path: docPath, Msg: "dependentRequired entries must be strings"}
				}
				list = append(list, s)
			}
			n.Dependents.Required[name] = list
		}
	}
	if ds, ok := raw["dependentSchemas"].(map[string]any); ok {
		n.Dependents.Schemas = map[string]*Node{}
		gvMap := gv.Get("dependentSchemas").Map()
		for name, subAny := range ds {
			m, ok := subAny.(map[string]any)
			if !ok {
				return &SchemaError{Path: docPath, Msg: "dependentSchemas entries must be objects"}
			}
			node, err := buildNode(m, gvMap[name], docPath+"/dependentSchemas/"+name, kind)
			if err != nil {
				return err
			}
			n.Dependents.Schemas[name] = node
		}
	}
	return nil
}

func applyMembers(n *Node, raw map[string]any, gv gjson.Result, docPath string) error {
	if membersAny, ok := raw["members"].(map[string]any); ok {
		n.Members = map[string]*Node{}
		gvMap := gv.Get("members").Map()
		names := sortedKeys(membersAny)
		for _, name := range names {
			m, ok := membersAny[name].(map[string]any)
			if !ok {
				return &SchemaError{Path: docPath, Msg: "members." + name + " must be an object"}
			}
			node, err := buildMember(m, gvMap[name], docPath+"/members/"+name)
			if err != nil {
				return err
			}
			n.Members[name] = node
		}
	}
	if patAny, ok := raw["patternMembers"].(map[string]any); ok {
		patGV := gv.Get("patternMembers")
		patGVMap := patGV.Map()

		// json.Unmarshal into patAny (a map[string]any) already lost the
		// source order of these keys, so the declaration-order tie-break
		// between pattern members is recovered here by walking the
		// parallel gjson.Result with ForEach, which (like
		// tree/jsonfixture's object walks) visits object keys in the
		// order they appear in the document.
		order := 0
		var ferr error
		patGV.ForEach(func(key, _ gjson.Result) bool {
			pattern := key.String()
			m, ok := patAny[pattern].(map[string]any)
			if !ok {
				ferr = &SchemaError{Path: docPath, Msg: "patternMembers." + pattern + " must be an object"}
				return false
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				ferr = &SchemaError{Path: docPath, Msg: "malformed patternMembers regex " + pattern + ": " + err.Error(), Err: err}
				return false
			}
			node, err := buildMember(m, patGVMap[pattern], docPath+"/patternMembers/"+pattern)
			if err != nil {
				ferr = err
				return false
			}
			n.PatternMembers = append(n.PatternMembers, PatternMember{Regex: re, Src: pattern, Node: node, Order: order})
			order++
			return true
		})
		if ferr != nil {
			return ferr
		}
	}
	if reqAny, ok := raw["required"].([]any); ok {
		for _, r := range reqAny {
			s, ok := r.(string)
			if !ok {
				return &SchemaError{Path: docPath, Msg: "required entries must be strings"}
			}
			n.Required = append(n.Required, s)
		}
	}
	return nil
}

// buildMember builds a group/pattern member. $ref members are stored
// as Ref nodes (lazy); otherwise "type" is mandatory: a member without
// a type and without $ref is a schema error.
func buildMember(m map[string]any, gv gjson.Result, docPath string) (*Node, error) {
	if refAny, ok := m["$ref"]; ok {
		ref, ok := refAny.(string)
		if !ok || ref == "" {
			return nil, &SchemaError{Path: docPath, Msg: "$ref must be a non-empty string"}
		}
		return &Node{Type: TypeRef, RefPointer: ref, docPath: docPath}, nil
	}
	t, ok := m["type"].(string)
	if !ok {
		return nil, &SchemaError{Path: docPath, Msg: "member has no type and no $ref"}
	}
	switch t {
	case "group":
		return buildNode(m, gv, docPath, TypeGroup)
	case "dataset":
		return buildNode(m, gv, docPath, TypeDataset)
	default:
		return nil, &SchemaError{Path: docPath, Msg: fmt.Sprintf("member has unknown type %q", t)}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
