package source

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	variants "github.com/goliatone/go-variants"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "variants.json")
	yamlPath := filepath.Join(dir, "variants.yaml")
	writeFile(t, jsonPath, `{"home_button_color": "#FF0000", "max_items": 12, "banner": {"title": "Sale"}}`)
	writeFile(t, yamlPath, "home_button_color: \"#FF0000\"\nmax_items: 12\nbanner:\n  title: Sale\n")

	for _, path := range []string{jsonPath, yamlPath} {
		values, err := LoadFile(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		src := variants.Static(values)
		if got := variants.Variant(src, "max_items", 0); got != 12 {
			t.Fatalf("%s: expected 12, got %d", path, got)
		}
		if got := variants.Variant(src, "home_button_color", variants.Color{}); got.String() != "#FF0000" {
			t.Fatalf("%s: expected red, got %s", path, got)
		}
		banner := variants.Variant(src, "banner", map[string]string{})
		if banner["title"] != "Sale" {
			t.Fatalf("%s: unexpected banner %v", path, banner)
		}
	}

	values, _ := LoadFile(jsonPath)
	if _, ok := values["max_items"].(json.Number); !ok {
		t.Fatalf("expected JSON numbers to decode as json.Number, got %T", values["max_items"])
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "variants.toml")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"a":`)
	if _, err := LoadFile(bad); err == nil {
		t.Fatalf("expected decode error")
	}
	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "  \n")
	if values, err := LoadFile(empty); err != nil || len(values) != 0 {
		t.Fatalf("expected empty file to load as empty, got %v %v", values, err)
	}
}

func TestFileReloadKeepsLastGoodState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "variants.json")
	writeFile(t, path, `{"title": "v1"}`)

	file, err := NewFile(path)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	r := variants.NewResolver(file)

	writeFile(t, path, `{"title": "v2"}`)
	if err := file.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := variants.Resolve(r, "title", ""); got != "v2" {
		t.Fatalf("expected v2, got %q", got)
	}

	writeFile(t, path, `{"title": `)
	if err := file.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if file.LastError() == nil {
		t.Fatalf("expected LastError to report the failure")
	}
	if got := variants.Resolve(r, "title", ""); got != "v2" {
		t.Fatalf("expected last good value v2, got %q", got)
	}
	if file.Assignments().Revision() != 2 {
		t.Fatalf("expected failed reload not to bump revision, got %d", file.Assignments().Revision())
	}
}
