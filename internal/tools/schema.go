package tools

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// BuildSchema generates a JSON Schema from a Go struct type using reflection.
// It supports the following struct tags:
//   - json: field name (uses json tag name if present)
//   - jsonschema: additional schema attributes (description, required, enum, default,
//     minimum, maximum)
//
// Example usage:
//
//	type Args struct {
//	    Path  string `json:"path" jsonschema:"description=Directory to list,required"`
//	    Level int    `json:"level" jsonschema:"minimum=0,maximum=100"`
//	}
//	schema := BuildSchema(Args{})
func BuildSchema(v any) map[string]any {
	t := reflect.TypeOf(v)
	if t == nil {
		return emptyObjectSchema()
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return emptyObjectSchema()
	}

	return buildObjectSchema(t)
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
}

// buildObjectSchema builds a JSON Schema for a struct type.
// Objects are closed: arguments outside the declared properties are rejected.
func buildObjectSchema(t reflect.Type) map[string]any {
	properties := make(map[string]any)
	required := []string{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}

		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			name, _, _ := strings.Cut(jsonTag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				fieldName = name
			}
		}

		propSchema := buildTypeSchema(field.Type)

		if jsTag := field.Tag.Get("jsonschema"); jsTag != "" {
			parseJSONSchemaTag(jsTag, propSchema, fieldName, &required)
		}

		properties[fieldName] = propSchema
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// buildTypeSchema builds the schema for a Go type.
func buildTypeSchema(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": buildTypeSchema(t.Elem())}
	case reflect.Map:
		schema := map[string]any{"type": "object"}
		if t.Elem().Kind() != reflect.Interface {
			schema["additionalProperties"] = buildTypeSchema(t.Elem())
		}
		return schema
	case reflect.Struct:
		return buildObjectSchema(t)
	default:
		return map[string]any{"type": "object"}
	}
}

// parseJSONSchemaTag parses the jsonschema tag and updates the schema.
// Supported attributes:
//   - description=<text>: adds description field
//   - required: marks field as required
//   - enum=<v1|v2|v3>: adds enum values (pipe-separated)
//   - default=<value>: adds default value
//   - minimum=<n>, maximum=<n>: numeric bounds
func parseJSONSchemaTag(tag string, schema map[string]any, fieldName string, required *[]string) {
	attrs := strings.Split(tag, ",")
	for _, attr := range attrs {
		attr = strings.TrimSpace(attr)

		if attr == "required" {
			*required = append(*required, fieldName)
			continue
		}

		key, value, ok := strings.Cut(attr, "=")
		if !ok {
			continue
		}

		switch key {
		case "description":
			schema["description"] = value
		case "enum":
			enumVals := strings.Split(value, "|")
			anyVals := make([]any, len(enumVals))
			for i, v := range enumVals {
				anyVals[i] = v
			}
			schema["enum"] = anyVals
		case "default":
			schema["default"] = typedLiteral(schema["type"], value)
		case "minimum", "maximum":
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				schema[key] = n
			}
		}
	}
}

func typedLiteral(schemaType any, raw string) any {
	switch schemaType {
	case "integer", "number":
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

// withConfirm returns a copy of schema that declares the boolean confirm argument.
func withConfirm(schema map[string]any) map[string]any {
	out := cloneSchema(schema)
	props, _ := out["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}
	if _, ok := props["confirm"]; !ok {
		props["confirm"] = map[string]any{
			"type":        "boolean",
			"description": "Must be true to run this destructive operation",
		}
	}
	out["properties"] = props

	var required []any
	switch r := out["required"].(type) {
	case []string:
		for _, s := range r {
			required = append(required, s)
		}
	case []any:
		required = r
	}
	if !slices.Contains(required, any("confirm")) {
		required = append(required, "confirm")
	}
	out["required"] = required
	return out
}

// cloneSchema deep-copies the map and slice nodes of a schema document.
func cloneSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneSchema(x)
	case []any:
		c := make([]any, len(x))
		for i := range x {
			c[i] = cloneValue(x[i])
		}
		return c
	case []string:
		return slices.Clone(x)
	default:
		return v
	}
}

// compileSchema compiles a tool schema. The document is normalized through JSON so that
// Go-built maps and decoded documents compile identically.
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	if schema == nil {
		schema = emptyObjectSchema()
	}
	if t, ok := schema["type"].(string); !ok || t != "object" {
		return nil, fmt.Errorf("%w: %s: root type must be \"object\"", ErrInvalidSchema, name)
	}

	doc, err := normalizeJSON(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, name, err)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: add resource: %v", ErrInvalidSchema, name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, name, err)
	}
	return compiled, nil
}

// validateArgs validates args against a compiled schema.
func validateArgs(name string, compiled *jsonschema.Schema, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	doc, err := normalizeJSON(args)
	if err != nil {
		return NewInvalidArgsError(name, "arguments are not JSON-encodable", err)
	}
	if err := compiled.Validate(doc); err != nil {
		return NewInvalidArgsError(name, "schema validation failed", err)
	}
	return nil
}

func normalizeJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CoerceArgs converts string values to the primitive type the schema declares for each
// property. Values that cannot be converted are left untouched so validation reports them.
func CoerceArgs(schema map[string]any, args map[string]any) map[string]any {
	out := maps.Clone(args)
	if out == nil {
		out = map[string]any{}
	}
	props, _ := schema["properties"].(map[string]any)
	for key, val := range out {
		s, ok := val.(string)
		if !ok {
			continue
		}
		prop, _ := props[key].(map[string]any)
		switch prop["type"] {
		case "integer":
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				out[key] = n
			} else if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && f == float64(int64(f)) {
				out[key] = int64(f)
			}
		case "number":
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				out[key] = f
			}
		case "boolean":
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				out[key] = b
			}
		}
	}
	return out
}
