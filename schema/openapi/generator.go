package openapi

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	variants "github.com/goliatone/go-variants"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI-compatible schema generator. Every
// catalog becomes one component schema; the request body of the configured
// operation references all of them, keyed by group.
func NewGenerator(opts ...GeneratorOption) variants.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

func (g generator) Generate(catalogs ...variants.Catalog) (variants.SchemaDocument, error) {
	components := make(map[string]any, len(catalogs))
	properties := make(map[string]any, len(catalogs))
	groups := make([]string, 0, len(catalogs))

	for _, catalog := range catalogs {
		group := catalog.Group()
		if group == "" {
			return variants.SchemaDocument{}, fmt.Errorf("openapi: catalog group must be set")
		}
		name := componentName(group)
		if _, exists := components[name]; exists {
			return variants.SchemaDocument{}, fmt.Errorf("openapi: duplicate component %q for group %q", name, group)
		}
		schema, err := catalogSchema(catalog)
		if err != nil {
			return variants.SchemaDocument{}, fmt.Errorf("openapi: group %q: %w", group, err)
		}
		components[name] = schema
		properties[group] = map[string]any{"$ref": "#/components/schemas/" + name}
		groups = append(groups, group)
	}
	sort.Strings(groups)

	document, err := newDocumentBuilder(g.config).build(properties, components)
	if err != nil {
		return variants.SchemaDocument{}, err
	}
	return variants.SchemaDocument{
		Format:   variants.SchemaFormatOpenAPI,
		Document: document,
		Groups:   groups,
	}, nil
}

func catalogSchema(catalog variants.Catalog) (map[string]any, error) {
	properties := map[string]any{}
	for _, d := range catalog.Descriptors() {
		schema, err := buildSchema(reflect.ValueOf(d.Default))
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", d.Key, err)
		}
		if d.Default != nil {
			schema["default"] = defaultValue(d.Default)
		}
		if d.Description != "" {
			schema["description"] = d.Description
		}
		schema["x-go-type"] = d.Type
		properties[string(d.Key)] = schema
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}, nil
}

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

func defaultValue(value any) any {
	if marshaler, ok := value.(encoding.TextMarshaler); ok {
		if text, err := marshaler.MarshalText(); err == nil {
			return string(text)
		}
	}
	return value
}

func buildSchema(rv reflect.Value) (map[string]any, error) {
	if !rv.IsValid() {
		return map[string]any{}, nil
	}

	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{"nullable": true}, nil
		}
		rv = rv.Elem()
	}

	if number, ok := jsonNumber(rv); ok {
		if _, err := number.Int64(); err == nil {
			return map[string]any{"type": "integer"}, nil
		}
		return map[string]any{"type": "number"}, nil
	}
	if rv.Type().Implements(textMarshalerType) {
		return map[string]any{"type": "string"}, nil
	}
	if rv.Type() == reflect.TypeOf(time.Duration(0)) {
		return map[string]any{"type": "string", "format": "duration"}, nil
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		return buildSchema(rv.Elem())
	case reflect.Bool:
		return map[string]any{"type": "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}, nil
	case reflect.String:
		return map[string]any{"type": "string"}, nil
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			return map[string]any{"type": "string", "format": "date-time"}, nil
		}
		return schemaForStruct(rv)
	case reflect.Map:
		return schemaForMap(rv)
	case reflect.Slice, reflect.Array:
		return schemaForSlice(rv)
	default:
		return nil, fmt.Errorf("openapi: kind %s unsupported", rv.Kind())
	}
}

func schemaForMap(rv reflect.Value) (map[string]any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rv.Type().Key())
	}

	properties := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		child, err := buildSchema(iter.Value())
		if err != nil {
			return nil, err
		}
		properties[iter.Key().String()] = child
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func schemaForStruct(rv reflect.Value) (map[string]any, error) {
	rt := rv.Type()
	properties := map[string]any{}

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}

		child, err := buildSchema(rv.Field(i))
		if err != nil {
			return nil, err
		}
		properties[name] = child
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
	}, nil
}

func schemaForSlice(rv reflect.Value) (map[string]any, error) {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return map[string]any{
			"type":   "string",
			"format": "byte",
		}, nil
	}

	itemSchema := map[string]any{}
	if rv.Len() > 0 {
		var err error
		itemSchema, err = buildSchema(rv.Index(0))
		if err != nil {
			return nil, err
		}
	} else if elem := rv.Type().Elem(); elem.Kind() != reflect.Interface {
		var err error
		itemSchema, err = buildSchema(reflect.Zero(elem))
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"type":  "array",
		"items": itemSchema,
	}, nil
}

// componentName turns a group id such as "home_page" or "checkout-v2" into
// a component name such as "HomePageVariants".
func componentName(group string) string {
	parts := strings.FieldsFunc(group, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' ' || r == '/'
	})
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	b.WriteString("Variants")
	return b.String()
}

func jsonNumber(rv reflect.Value) (json.Number, bool) {
	if !rv.CanInterface() {
		return "", false
	}
	number, ok := rv.Interface().(json.Number)
	return number, ok
}
