package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonschema"
)

// metaSchemaJSON is a permissive self-check meta-schema that rejects
// the gross shape errors (a "type" outside {group,dataset}, non-object
// "members", non-array "attrs", ...) as a SchemaError before the AST
// builder ever runs, validating every node up front rather than
// failing deep inside recursive construction.
const metaSchemaJSON = `{
	"$schema": "http://json-schema.org/draft/2019-09/schema#",
	"$id": "https://hdf5schema.example/meta-schema.json",
	"type": "object",
	"properties": {
		"type": {"enum": ["group", "dataset"]},
		"members": {"type": "object", "additionalProperties": {"$ref": "#"}},
		"patternMembers": {"type": "object", "additionalProperties": {"$ref": "#"}},
		"required": {"type": "array", "items": {"type": "string"}},
		"attrs": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {"name": {"type": "string"}}
			}
		},
		"shape": {"type": "array", "items": {"type": "integer"}},
		"allOf": {"type": "array", "items": {"$ref": "#"}},
		"anyOf": {"type": "array", "items": {"$ref": "#"}},
		"oneOf": {"type": "array", "items": {"$ref": "#"}},
		"not": {"$ref": "#"},
		"if": {"$ref": "#"},
		"then": {"$ref": "#"},
		"else": {"$ref": "#"},
		"dependentRequired": {
			"type": "object",
			"additionalProperties": {"type": "array", "items": {"type": "string"}}
		},
		"dependentSchemas": {"type": "object", "additionalProperties": {"$ref": "#"}},
		"$ref": {"type": "string"},
		"$defs": {"type": "object", "additionalProperties": {"$ref": "#"}},
		"$comment": {"type": "string"},
		"description": {"type": "string"},
		"$id": {"type": "string"},
		"pattern": {"type": "string"},
		"minLength": {"type": "integer", "minimum": 0},
		"maxLength": {"type": "integer", "minimum": 0}
	}
}`

var metaSchema *jsonschema.Schema

func init() {
	metaSchema = &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(metaSchemaJSON), metaSchema); err != nil {
		panic(fmt.Sprintf("schema: bundled meta-schema is malformed: %v", err))
	}
}

// checkAgainstMeta self-validates the raw schema document against a
// qri-io/jsonschema.Schema, surfacing malformed-shape errors as a
// SchemaError before the AST builder ever inspects the document.
func checkAgainstMeta(raw []byte) error {
	errs, err := metaSchema.ValidateBytes(context.Background(), raw)
	if err != nil {
		return &SchemaError{Msg: fmt.Sprintf("schema document failed meta-schema check: %v", err)}
	}
	if len(errs) > 0 {
		return &SchemaError{Msg: fmt.Sprintf("schema document failed meta-schema check: %s", errs[0].Error())}
	}
	return nil
}
