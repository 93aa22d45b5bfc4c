package tools

import (
	"reflect"
	"testing"
)

func TestDefinitionsStableAndComplete(t *testing.T) {
	first := Definitions()
	second := Definitions()

	wantOrder := []string{"search_web", "get_subscription_pricing", "find_alternatives", "check_price_changes"}
	if len(first) != len(wantOrder) {
		t.Fatalf("expected %d tools, got %d", len(wantOrder), len(first))
	}
	for i, def := range first {
		if def.Name != wantOrder[i] {
			t.Errorf("tool %d: got %q, want %q", i, def.Name, wantOrder[i])
		}
		if def.Description == "" {
			t.Errorf("tool %q has no description", def.Name)
		}
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated calls must return identical definitions")
	}
}

func TestDefinitionsSchemaShape(t *testing.T) {
	for _, def := range Definitions() {
		if def.Parameters["type"] != "object" {
			t.Errorf("%s: schema type %v", def.Name, def.Parameters["type"])
		}
		props, ok := def.Parameters["properties"].(map[string]any)
		if !ok || len(props) == 0 {
			t.Errorf("%s: missing properties", def.Name)
		}
		required, ok := def.Parameters["required"].([]string)
		if !ok || len(required) == 0 {
			t.Errorf("%s: required must be a non-empty []string", def.Name)
			continue
		}
		for _, name := range required {
			if _, ok := props[name]; !ok {
				t.Errorf("%s: required field %q not among properties", def.Name, name)
			}
		}
	}
}
