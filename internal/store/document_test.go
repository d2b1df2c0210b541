// ABOUTME: Tests for document decoding, the empty-document fallback and shallow merge
// ABOUTME: Covers malformed input, json.Number handling and merge non-destructiveness

package store

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseOrDefault(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Document
	}{
		{name: "object", text: `{"a":1,"b":"x"}`, want: Document{"a": json.Number("1"), "b": "x"}},
		{name: "nested", text: `{"a":{"b":[1,2]}}`, want: Document{"a": map[string]any{"b": []any{json.Number("1"), json.Number("2")}}}},
		{name: "surrounding whitespace", text: "  {\"a\":true}\n", want: Document{"a": true}},
		{name: "empty string", text: "", want: Document{}},
		{name: "null", text: "null", want: Document{}},
		{name: "malformed", text: "{a:1", want: Document{}},
		{name: "array", text: "[1,2]", want: Document{}},
		{name: "number", text: "42", want: Document{}},
		{name: "string", text: `"hello"`, want: Document{}},
		{name: "trailing garbage", text: `{"a":1} tail`, want: Document{}},
		{name: "two objects", text: `{"a":1}{"b":2}`, want: Document{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOrDefault(tt.text)
			if got == nil {
				t.Fatal("ParseOrDefault returned nil")
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseOrDefault(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestParseDocument_Errors(t *testing.T) {
	for _, text := range []string{"", "{", "[]", `{"a":1} x`} {
		if _, err := ParseDocument(text); err == nil {
			t.Errorf("ParseDocument(%q) expected error", text)
		}
	}

	doc, err := ParseDocument("null")
	if err != nil {
		t.Fatalf("ParseDocument(null) error = %v", err)
	}
	if doc != nil {
		t.Errorf("ParseDocument(null) = %v, want nil", doc)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		base  Document
		patch Document
		want  Document
	}{
		{
			name:  "adds keys",
			base:  Document{"b": 2},
			patch: Document{"y": 4},
			want:  Document{"b": 2, "y": 4},
		},
		{
			name:  "patch wins",
			base:  Document{"a": 1, "b": 2},
			patch: Document{"a": "one"},
			want:  Document{"a": "one", "b": 2},
		},
		{
			name:  "nested values replaced wholesale",
			base:  Document{"n": map[string]any{"x": 1, "y": 2}},
			patch: Document{"n": map[string]any{"x": 3}},
			want:  Document{"n": map[string]any{"x": 3}},
		},
		{
			name:  "explicit null overwrites",
			base:  Document{"a": 1},
			patch: Document{"a": nil},
			want:  Document{"a": nil},
		},
		{
			name:  "nil patch",
			base:  Document{"a": 1},
			patch: nil,
			want:  Document{"a": 1},
		},
		{
			name:  "nil base",
			base:  nil,
			patch: Document{"a": 1},
			want:  Document{"a": 1},
		},
		{
			name: "both nil",
			want: Document{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.base, tt.patch)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := Document{"a": 1}
	patch := Document{"b": 2}

	merged := Merge(base, patch)
	merged["c"] = 3

	if diff := cmp.Diff(Document{"a": 1}, base); diff != "" {
		t.Errorf("base mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Document{"b": 2}, patch); diff != "" {
		t.Errorf("patch mutated (-want +got):\n%s", diff)
	}
}

func TestEncodeDocument(t *testing.T) {
	got, err := encodeDocument(nil)
	if err != nil || got != "{}" {
		t.Errorf("encodeDocument(nil) = %q, %v; want {}", got, err)
	}

	got, err = encodeDocument(Document{"z": 1, "a": "x"})
	if err != nil {
		t.Fatalf("encodeDocument error = %v", err)
	}
	if got != `{"a":"x","z":1}` {
		t.Errorf("encodeDocument = %q", got)
	}

	if _, err := encodeDocument(Document{"f": func() {}}); err == nil {
		t.Error("expected error encoding a func value")
	}
}

func TestRowText(t *testing.T) {
	row := Row{
		"s":   "text",
		"b":   []byte("bytes"),
		"nil": nil,
		"map": map[string]any{"a": 1},
	}

	cases := map[string]string{
		"s":       "text",
		"b":       "bytes",
		"nil":     "",
		"missing": "",
		"map":     `{"a":1}`,
	}
	for col, want := range cases {
		if got := row.Text(col); got != want {
			t.Errorf("Row.Text(%q) = %q, want %q", col, got, want)
		}
	}
}
