package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docminer/pkg/types"
)

func validForm() *types.Form {
	return &types.Form{
		Title:       "Invoice Fields",
		Description: "Per-line-item invoice extraction",
		Fields: []types.Field{
			{ID: "vendor", Type: types.FieldTypeString, Question: "Who issued the invoice?", Required: true},
			{ID: "total", Type: types.FieldTypeNumber, Question: "What is the total amount?"},
			{ID: "paid", Type: types.FieldTypeBoolean, Question: "Is the invoice marked paid?"},
			{ID: "tags", Type: types.FieldTypeArray, Question: "Any tags on the invoice?"},
		},
	}
}

func TestLoadForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.json")
	content := `{
  "title": "Invoice Fields",
  "fields": [
    {"id": "vendor", "type": "string", "question": "Who issued the invoice?"}
  ]
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	form, err := LoadForm(path)
	if err != nil {
		t.Fatalf("LoadForm: %v", err)
	}
	if form.Title != "Invoice Fields" || len(form.Fields) != 1 {
		t.Errorf("form = %+v", form)
	}
}

func TestLoadFormErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadForm(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadForm(bad); err == nil {
		t.Error("expected error for invalid JSON")
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"title":"X","fields":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadForm(invalid); err == nil {
		t.Error("expected validation error for empty fields")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validForm()); err != nil {
		t.Fatalf("Validate(valid) = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*types.Form)
		want   string
	}{
		{"missing title", func(f *types.Form) { f.Title = "" }, "title"},
		{"no fields", func(f *types.Form) { f.Fields = nil }, "at least one field"},
		{"empty field id", func(f *types.Form) { f.Fields[0].ID = "" }, "id is required"},
		{"duplicate field id", func(f *types.Form) { f.Fields[1].ID = "vendor" }, "duplicate"},
		{"bad field type", func(f *types.Form) { f.Fields[0].Type = "decimal" }, "invalid type"},
		{"missing question", func(f *types.Form) { f.Fields[2].Question = "" }, "question"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(form)
			err := Validate(form)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestHashForm(t *testing.T) {
	form := validForm()
	h1, err := HashForm(form)
	if err != nil {
		t.Fatalf("HashForm: %v", err)
	}
	if len(h1) != 16 {
		t.Errorf("hash length = %d, want 16 hex chars", len(h1))
	}

	h2, err := HashForm(validForm())
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("hash not stable for identical forms")
	}

	form.Fields[0].Question = "Who is the vendor?"
	h3, err := HashForm(form)
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Error("hash unchanged after form edit")
	}
}

func TestGetField(t *testing.T) {
	form := validForm()
	if f := GetField(form, "total"); f == nil || f.Type != types.FieldTypeNumber {
		t.Errorf("GetField(total) = %+v", f)
	}
	if f := GetField(form, "nonexistent"); f != nil {
		t.Errorf("GetField(nonexistent) = %+v, want nil", f)
	}
}
