package variants

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument wraps a generated schema with its format. Document must be
// JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
	Groups   []string
}

// SchemaGenerator turns variant catalogs into a schema document. Generators
// must be safe for concurrent use and return an empty document for no input.
type SchemaGenerator interface {
	Generate(catalogs ...Catalog) (SchemaDocument, error)
}

// FieldDescriptor describes a path and its inferred type.
type FieldDescriptor struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(catalogs ...Catalog) (SchemaDocument, error) {
	fields := []FieldDescriptor{}
	groups := make([]string, 0, len(catalogs))
	for _, catalog := range catalogs {
		groups = append(groups, catalog.Group())
		for _, d := range catalog.Descriptors() {
			fields = append(fields, FieldDescriptor{
				Path:        joinPath(catalog.Group(), string(d.Key)),
				Type:        d.Type,
				Default:     d.Default,
				Description: d.Description,
			})
		}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: fields,
		Groups:   groups,
	}, nil
}

// Schema renders the catalog with gen, or the descriptor generator when nil.
func (c Catalog) Schema(gen SchemaGenerator) (SchemaDocument, error) {
	if gen == nil {
		gen = DefaultSchemaGenerator()
	}
	return gen.Generate(c)
}

// DescribeAssignments infers field descriptors from raw assignments. Nested
// maps are flattened into dotted paths.
func DescribeAssignments(view Assignments) []FieldDescriptor {
	descriptors := deriveFieldDescriptors(view.Values(), "")
	if descriptors == nil {
		return []FieldDescriptor{}
	}
	return descriptors
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	if value == nil {
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: "nil"}}
	}

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{
				Path: prefix,
				Type: "map[string]any",
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: "[]" + elementType,
		}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{
			Path: prefix,
			Type: typeName(typed),
		}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
