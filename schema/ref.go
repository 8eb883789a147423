package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qri-io/jsonpointer"
	"github.com/tidwall/gjson"
)

// Resolve dereferences a $ref pointer against the document's $defs
// registry (the common "#/$defs/name" case) or, for deeper pointers,
// against the raw document tree via qri-io/jsonpointer, building a
// fresh AST node for the resolved fragment on first use.
//
// Resolution results are cached by pointer string so the same pointer
// always yields the same *Node instance — the walker's cycle guard
// keys off node identity, and identity must be stable across
// re-entry for the guard to fire on genuine cycles.
func (d *Document) Resolve(pointer string) (*Node, error) {
	if n, ok := d.resolveCache[pointer]; ok {
		return n, nil
	}

	if name, ok := defsShortcut(pointer); ok {
		entry, ok := d.Defs[name]
		if !ok {
			return nil, &SchemaError{Msg: fmt.Sprintf("$ref %q: no such $defs entry", pointer)}
		}
		d.resolveCache[pointer] = entry
		return entry, nil
	}

	ptr, err := jsonpointer.Parse(pointer)
	if err != nil {
		return nil, &SchemaError{Msg: fmt.Sprintf("$ref %q: malformed JSON pointer: %v", pointer, err), Err: err}
	}
	val, err := ptr.Eval(d.raw)
	if err != nil {
		return nil, &SchemaError{Msg: fmt.Sprintf("$ref %q: unresolved: %v", pointer, err), Err: err}
	}
	fragment, ok := val.(map[string]any)
	if !ok {
		return nil, &SchemaError{Msg: fmt.Sprintf("$ref %q: target is not a schema object", pointer)}
	}
	fragType := TypeGroup
	if t, _ := fragment["type"].(string); t == "dataset" {
		fragType = TypeDataset
	}
	gv := gjsonAt(d.rootGV, pointerTokens(pointer))
	node, err := buildNode(fragment, gv, pointer, fragType)
	if err != nil {
		return nil, err
	}
	d.resolveCache[pointer] = node
	return node, nil
}

// pointerTokens splits a "#/a/b/0"-style pointer into its unescaped
// RFC 6901 reference tokens, to walk the document's parallel
// gjson.Result tree alongside qri-io/jsonpointer's walk of d.raw.
func pointerTokens(pointer string) []string {
	p := strings.TrimPrefix(pointer, "#")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	tokens := make([]string, len(parts))
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		tokens[i] = part
	}
	return tokens
}

// gjsonAt walks root by the same tokens jsonpointer.Eval would use
// against d.raw, via Map()/Array() rather than path-string Get so
// member/pattern names containing "." or other gjson path syntax
// navigate correctly.
func gjsonAt(root gjson.Result, tokens []string) gjson.Result {
	cur := root
	for _, t := range tokens {
		if cur.IsArray() {
			idx, err := strconv.Atoi(t)
			arr := cur.Array()
			if err != nil || idx < 0 || idx >= len(arr) {
				return gjson.Result{}
			}
			cur = arr[idx]
			continue
		}
		v, ok := cur.Map()[t]
		if !ok {
			return gjson.Result{}
		}
		cur = v
	}
	return cur
}

// defsShortcut recognizes the canonical "#/$defs/<name>" pointer form
// without round-tripping through jsonpointer, since it is by far the
// most common case and the registry already has the built node ready.
func defsShortcut(pointer string) (string, bool) {
	const prefix = "#/$defs/"
	if !strings.HasPrefix(pointer, prefix) {
		return "", false
	}
	rest := pointer[len(prefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
