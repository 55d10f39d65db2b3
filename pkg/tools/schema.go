package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// MustSchemaFor derives the JSON Schema of T, panicking on failure. Schemas
// are derived from static types, so a failure is a programming error.
func MustSchemaFor[T any]() any {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		panic(err)
	}
	return schema
}

// SchemaToMap converts a schema value to a plain map, normalizing it so every
// provider accepts it: the top level is always an object with a properties
// field.
func SchemaToMap(params any) (map[string]any, error) {
	m := map[string]any{}
	if params != nil {
		buf, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(buf, &m); err != nil {
			return nil, err
		}
	}

	if m["type"] == nil {
		m["type"] = "object"
	}
	if m["properties"] == nil {
		m["properties"] = map[string]any{}
	}

	return m, nil
}

// ConvertSchema converts a schema value into the destination type through a
// normalizing JSON round-trip.
func ConvertSchema(params, v any) error {
	m, err := SchemaToMap(params)
	if err != nil {
		return err
	}

	buf, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return json.Unmarshal(buf, v)
}
