package openapi

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	variants "github.com/goliatone/go-variants"
)

type banner struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
	Skip  string   `json:"-"`
}

var homeCatalog = variants.MustCatalog("home_page",
	variants.Define("button_color", variants.MustColor("#0000FF"), variants.WithDescription("Primary CTA color")),
	variants.Define("show_image", false),
	variants.Define("max_items", 10),
	variants.Define("ratio", 0.5),
	variants.Define("cooldown", 30*time.Second),
	variants.Define("banner", banner{Title: "Hi"}),
)

func TestNewGeneratorOptions(t *testing.T) {
	custom := NewGenerator(
		WithOpenAPIVersion("3.1.0"),
		WithInfo("Custom Service", "2.0.0", WithInfoDescription("custom schema")),
		WithOperation("/experiments", "POST", "updateExperiments", WithOperationSummary("Update experiments")),
		WithContentType("application/merge-patch+json"),
		WithResponse("201", "Created"),
	)

	internal, ok := custom.(generator)
	if !ok {
		t.Fatalf("expected generator implementation, got %T", custom)
	}
	cfg := internal.config
	if cfg.openAPIVersion != "3.1.0" {
		t.Fatalf("expected openapi version 3.1.0, got %q", cfg.openAPIVersion)
	}
	if cfg.info.Title != "Custom Service" || cfg.info.Version != "2.0.0" || cfg.info.Description != "custom schema" {
		t.Fatalf("unexpected info %+v", cfg.info)
	}
	if cfg.operation.Path != "/experiments" || cfg.operation.Method != "post" || cfg.operation.OperationID != "updateExperiments" {
		t.Fatalf("unexpected operation %+v", cfg.operation)
	}
	if cfg.operation.Summary != "Update experiments" {
		t.Fatalf("expected summary, got %q", cfg.operation.Summary)
	}
	if cfg.contentType != "application/merge-patch+json" {
		t.Fatalf("unexpected content type %q", cfg.contentType)
	}
	if cfg.responses["201"].Description != "Created" {
		t.Fatalf("expected 201 response, got %+v", cfg.responses)
	}
	if _, exists := cfg.responses["204"]; !exists {
		t.Fatalf("expected default 204 response to remain configured")
	}
}

func TestGenerateCatalogDocument(t *testing.T) {
	doc, err := NewGenerator().Generate(homeCatalog)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if doc.Format != variants.SchemaFormatOpenAPI {
		t.Fatalf("unexpected format %q", doc.Format)
	}
	if len(doc.Groups) != 1 || doc.Groups[0] != "home_page" {
		t.Fatalf("unexpected groups %v", doc.Groups)
	}

	document := doc.Document.(map[string]any)
	if document["openapi"] != "3.0.3" {
		t.Fatalf("unexpected version %v", document["openapi"])
	}

	operation := document["paths"].(map[string]any)["/variants"].(map[string]any)["put"].(map[string]any)
	if operation["operationId"] != "put:/variants" {
		t.Fatalf("unexpected operation id %v", operation["operationId"])
	}
	body := operation["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)
	ref := body["schema"].(map[string]any)["properties"].(map[string]any)["home_page"].(map[string]any)["$ref"]
	if ref != "#/components/schemas/HomePageVariants" {
		t.Fatalf("unexpected ref %v", ref)
	}

	schemas := document["components"].(map[string]any)["schemas"].(map[string]any)
	component := schemas["HomePageVariants"].(map[string]any)
	if component["additionalProperties"] != false {
		t.Fatalf("expected closed object, got %v", component["additionalProperties"])
	}
	props := component["properties"].(map[string]any)

	cases := []struct {
		key      string
		wantType string
		format   string
	}{
		{key: "button_color", wantType: "string"},
		{key: "show_image", wantType: "boolean"},
		{key: "max_items", wantType: "integer"},
		{key: "ratio", wantType: "number"},
		{key: "cooldown", wantType: "string", format: "duration"},
		{key: "banner", wantType: "object"},
	}
	for _, tc := range cases {
		prop := props[tc.key].(map[string]any)
		if prop["type"] != tc.wantType {
			t.Fatalf("%s: expected type %q, got %v", tc.key, tc.wantType, prop["type"])
		}
		if tc.format != "" && prop["format"] != tc.format {
			t.Fatalf("%s: expected format %q, got %v", tc.key, tc.format, prop["format"])
		}
	}

	color := props["button_color"].(map[string]any)
	if color["default"] != "#0000FF" {
		t.Fatalf("expected text default, got %v", color["default"])
	}
	if color["description"] != "Primary CTA color" {
		t.Fatalf("expected description, got %v", color["description"])
	}

	bannerProps := props["banner"].(map[string]any)["properties"].(map[string]any)
	if _, ok := bannerProps["title"]; !ok {
		t.Fatalf("expected title property, got %v", bannerProps)
	}
	if tags := bannerProps["tags"].(map[string]any); tags["type"] != "array" || tags["items"].(map[string]any)["type"] != "string" {
		t.Fatalf("unexpected tags schema %v", tags)
	}
	if _, ok := bannerProps["Skip"]; ok {
		t.Fatalf("expected json:\"-\" field to be skipped")
	}

	if _, err := json.Marshal(doc.Document); err != nil {
		t.Fatalf("document must be JSON serialisable: %v", err)
	}
}

func TestGenerateMultipleCatalogs(t *testing.T) {
	checkout := variants.MustCatalog("checkout-v2", variants.Define("one_click", true))
	doc, err := NewGenerator().Generate(homeCatalog, checkout)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.Join(doc.Groups, ",") != "checkout-v2,home_page" {
		t.Fatalf("unexpected groups %v", doc.Groups)
	}
	schemas := doc.Document.(map[string]any)["components"].(map[string]any)["schemas"].(map[string]any)
	if _, ok := schemas["CheckoutV2Variants"]; !ok {
		t.Fatalf("expected CheckoutV2Variants component, got %v", schemas)
	}
}

func TestGenerateRejectsDuplicateComponents(t *testing.T) {
	a := variants.MustCatalog("home_page", variants.Define("show_image", false))
	b := variants.MustCatalog("home-page", variants.Define("show_image", false))
	if _, err := NewGenerator().Generate(a, b); err == nil || !strings.Contains(err.Error(), "duplicate component") {
		t.Fatalf("expected duplicate component error, got %v", err)
	}
}

func TestGenerateEmpty(t *testing.T) {
	doc, err := NewGenerator().Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	document := doc.Document.(map[string]any)
	if _, ok := document["components"]; ok {
		t.Fatalf("expected no components for empty input")
	}
}

func TestCatalogSchemaWithGenerator(t *testing.T) {
	doc, err := homeCatalog.Schema(NewGenerator())
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if doc.Format != variants.SchemaFormatOpenAPI {
		t.Fatalf("unexpected format %q", doc.Format)
	}
}

func TestValidateDocument(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(map[string]any)
		wantErr string
	}{
		{name: "missing version", mutate: func(d map[string]any) { d["openapi"] = "" }, wantErr: "missing version"},
		{name: "missing title", mutate: func(d map[string]any) { d["info"].(map[string]any)["title"] = "" }, wantErr: "info.title"},
		{name: "no paths", mutate: func(d map[string]any) { d["paths"] = map[string]any{} }, wantErr: "at least one path"},
		{
			name: "relative path",
			mutate: func(d map[string]any) {
				d["paths"] = map[string]any{"variants": d["paths"].(map[string]any)["/variants"]}
			},
			wantErr: "must start with",
		},
		{
			name: "no responses",
			mutate: func(d map[string]any) {
				d["paths"].(map[string]any)["/variants"].(map[string]any)["put"].(map[string]any)["responses"] = map[string]any{}
			},
			wantErr: "missing responses",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			document := map[string]any{
				"openapi": "3.0.3",
				"info":    map[string]any{"title": "t", "version": "1"},
				"paths": map[string]any{"/variants": map[string]any{
					"put": map[string]any{"operationId": "x", "responses": map[string]any{"204": map[string]any{}}},
				}},
			}
			if err := validateDocument(document); err != nil {
				t.Fatalf("baseline must validate: %v", err)
			}
			tc.mutate(document)
			err := validateDocument(document)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
