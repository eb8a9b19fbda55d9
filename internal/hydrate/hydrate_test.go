package hydrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type bannerVariant struct {
	Title   string   `json:"title"`
	Layout  string   `json:"layout"`
	Tags    []string `json:"tags,omitempty"`
	Dismiss bool     `json:"dismiss"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		input     any
		options   []DecoderOption[bannerVariant]
		expect    bannerVariant
		expectErr string
	}{
		{
			name:   "plain map",
			input:  map[string]any{"title": "Welcome", "layout": "hero", "dismiss": true},
			expect: bannerVariant{Title: "Welcome", Layout: "hero", Dismiss: true},
		},
		{
			name: "yaml style keys",
			input: map[any]any{
				"title": "Hi",
				"tags":  []any{"a", "b"},
			},
			expect: bannerVariant{Title: "Hi", Tags: []string{"a", "b"}},
		},
		{
			name:      "unknown field rejected",
			input:     map[string]any{"title": "x", "colour": "red"},
			options:   []DecoderOption[bannerVariant]{WithDisallowUnknownFields[bannerVariant]()},
			expectErr: "unknown field",
		},
		{
			name:      "wrong field type",
			input:     map[string]any{"title": 42},
			expectErr: `decode key "home_banner"`,
		},
		{
			name:  "pre hook normalises",
			input: map[string]any{"title": "  spaced  "},
			options: []DecoderOption[bannerVariant]{
				WithPreHook[bannerVariant](func(_ Context, payload any) (any, error) {
					m := payload.(map[string]any)
					m["title"] = strings.TrimSpace(m["title"].(string))
					return m, nil
				}),
			},
			expect: bannerVariant{Title: "spaced"},
		},
		{
			name:  "post hook validates",
			input: map[string]any{"title": ""},
			options: []DecoderOption[bannerVariant]{
				WithPostHook[bannerVariant](func(_ Context, v *bannerVariant) error {
					if v.Title == "" {
						return errors.New("title required")
					}
					return nil
				}),
			},
			expectErr: "title required",
		},
		{
			name:  "custom decoder",
			input: "hero",
			options: []DecoderOption[bannerVariant]{
				WithCustomDecoder[bannerVariant](func(_ Context, payload any) (bannerVariant, error) {
					return bannerVariant{Layout: payload.(string)}, nil
				}),
			},
			expect: bannerVariant{Layout: "hero"},
		},
		{
			name:      "nil payload",
			input:     nil,
			expectErr: "payload is nil",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := NewDecoder(tc.options...)
			got, err := decoder.Decode(Context{Key: "home_banner", Group: "home"}, tc.input)
			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, got) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.expect, got)
			}
		})
	}
}

func TestDecodeDoesNotMutatePayload(t *testing.T) {
	payload := map[string]any{"title": "  original  "}
	decoder := NewDecoder(WithPreHook[bannerVariant](func(_ Context, p any) (any, error) {
		p.(map[string]any)["title"] = "rewritten"
		return p, nil
	}))
	if _, err := decoder.Decode(Context{Key: "k"}, payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["title"] != "  original  " {
		t.Fatalf("expected payload untouched, got %v", payload["title"])
	}
}
