package tool

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/lookatitude/agentcore/core"
)

// FuncTool adapts a typed Go function into a Tool, generating its JSON
// input schema from the function's argument struct via reflection instead
// of requiring the caller to hand-write one (the original implementation's
// ToolRegistry.register took a pre-built ToolDefinition; here the schema is
// derived, closer to how gofunc.GoFunctionTool wraps a Go function but
// driven by struct tags rather than a hand-authored schema string).
type FuncTool[T any] struct {
	name        string
	description string
	inputSchema map[string]any
	fn          func(ctx context.Context, input T) (*Result, error)
}

// NewFuncTool builds a FuncTool wrapping fn. T's exported fields are read
// via struct tags to build the tool's InputSchema:
//
//	json:"field_name"        the schema property's key (defaults to the Go field name)
//	description:"..."        the property's description
//	required:"true"          adds the field to the schema's "required" list
//	default:"..."            the property's "default" value (left as a string)
func NewFuncTool[T any](name, description string, fn func(ctx context.Context, input T) (*Result, error)) *FuncTool[T] {
	var zero T
	return &FuncTool[T]{
		name:        name,
		description: description,
		inputSchema: schemaForType(reflect.TypeOf(zero)),
		fn:          fn,
	}
}

func (f *FuncTool[T]) Name() string              { return f.name }
func (f *FuncTool[T]) Description() string        { return f.description }
func (f *FuncTool[T]) InputSchema() map[string]any { return f.inputSchema }

// Execute marshals input (as delivered by the model, already map[string]any)
// back to JSON and unmarshals it into T so fn can work with a typed struct
// instead of a bag of interface{} values.
func (f *FuncTool[T]) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, core.NewError("tool.FuncTool.Execute", core.ErrToolFailed, "marshal input", err)
	}
	var typed T
	if err := json.Unmarshal(raw, &typed); err != nil {
		return nil, core.NewError("tool.FuncTool.Execute", core.ErrToolFailed, "decode input into "+f.name+"'s argument type", err)
	}
	return f.fn(ctx, typed)
}

var _ Tool = (*FuncTool[struct{}])(nil)

// schemaForType builds a JSON-schema-shaped map for a struct type's exported
// fields. Unexported fields and non-struct types are skipped silently: a
// tool's argument type is always expected to be a plain struct.
func schemaForType(t reflect.Type) map[string]any {
	properties := map[string]any{}
	var required []string

	if t != nil && t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			jsonName := field.Tag.Get("json")
			if jsonName == "" {
				jsonName = field.Name
			}

			prop := map[string]any{"type": jsonKindOf(field.Type)}
			if desc := field.Tag.Get("description"); desc != "" {
				prop["description"] = desc
			}
			if def := field.Tag.Get("default"); def != "" {
				prop["default"] = def
			}
			properties[jsonName] = prop

			if field.Tag.Get("required") == "true" {
				required = append(required, jsonName)
			}
		}
	}

	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// jsonKindOf maps a Go field type to its JSON Schema "type" keyword.
func jsonKindOf(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}
