package schema

import (
	"regexp"

	"github.com/tidwall/gjson"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
)

// NodeType tags the variant a Node holds, so dispatch on it is a
// tagged-variant switch rather than duck-typed reflection.
type NodeType int

const (
	TypeGroup NodeType = iota
	TypeDataset
	TypeRef
)

func (t NodeType) String() string {
	switch t {
	case TypeGroup:
		return "group"
	case TypeDataset:
		return "dataset"
	default:
		return "ref"
	}
}

// Node is a schema AST node. Combinator/conditional/dependency fields
// live directly on the node rather than as a separate variant.
type Node struct {
	Type NodeType

	// Group fields.
	Members        map[string]*Node
	PatternMembers []PatternMember
	Required       []string

	// Dataset/value-constraint fields. The loader also fills them in on
	// a Group node, but the validator checks them for datasets only.
	Dtype      *dtype.Descriptor
	HasDtype   bool
	Shape      []int // -1 entries are wildcards
	HasShape   bool
	Enum       []any
	HasEnum    bool
	Const      any
	HasConst   bool
	MinLength  *int
	MaxLength  *int
	Pattern    *regexp.Regexp
	PatternSrc string
	Format     string

	Attrs []*AttrSpec

	Combinators Combinators
	Conditional Conditional
	Dependents  Dependents

	Annotations Annotations

	// Ref fields; only set when Type == TypeRef.
	RefPointer string

	// docPath is the JSON-pointer path of this node within the
	// document it was built from, for diagnostics only.
	docPath string
}

// AttrSpec is one entry of a node's attrs list: the subset of Dataset
// constraints allowed on attributes.
type AttrSpec struct {
	Name      string
	Required  bool
	Dtype     *dtype.Descriptor
	HasDtype  bool
	Shape     []int
	HasShape  bool
	Enum      []any
	HasEnum   bool
	Const     any
	HasConst  bool
	MinLength *int
	MaxLength *int
	Pattern   *regexp.Regexp
	Format    string
}

// PatternMember is one (compiled regex, schema) pair of a group's
// patternMembers, in source declaration order.
type PatternMember struct {
	Regex *regexp.Regexp
	Src   string
	Node  *Node
	Order int
}

// Combinators holds the optional allOf/anyOf/oneOf/not branches of a
// node.
type Combinators struct {
	AllOf []*Node
	AnyOf []*Node
	OneOf []*Node
	Not   *Node
}

func (c Combinators) Empty() bool {
	return len(c.AllOf) == 0 && len(c.AnyOf) == 0 && len(c.OneOf) == 0 && c.Not == nil
}

// Conditional holds the optional if/then/else triple of a node.
type Conditional struct {
	If   *Node
	Then *Node
	Else *Node
}

// Dependents holds dependentRequired/dependentSchemas rules.
type Dependents struct {
	Required map[string][]string
	Schemas  map[string]*Node
}

func (d Dependents) Empty() bool {
	return len(d.Required) == 0 && len(d.Schemas) == 0
}

// Annotations are diagnostic-only fields, ignored by validation
// semantics.
type Annotations struct {
	Description string
	Comment     string
	ID          string
}

// Document is a fully-built schema: the root AST node plus the global
// $defs registry and the raw JSON tree needed to resolve deeper
// pointers lazily.
type Document struct {
	Root *Node
	Defs map[string]*Node

	raw          map[string]any
	rootGV       gjson.Result // parallel to raw, kept only to recover source key order for deep $ref fragments
	resolveCache map[string]*Node
}
