package selection

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestUnmarshal_Shapes(t *testing.T) {
	id := uuid.New()

	cases := []struct {
		name  string
		input string
		kind  Kind
		label string
	}{
		{name: "null", input: `null`, kind: Empty},
		{name: "blank string", input: `"  "`, kind: Empty},
		{name: "bare id", input: `"` + id.String() + `"`, kind: Existing},
		{name: "bare label", input: `"Acme Ltd"`, kind: NewLabel, label: "Acme Ltd"},
		{name: "option with value", input: `{"value":"` + id.String() + `","label":"Jane"}`, kind: Existing},
		{name: "option with id", input: `{"id":"` + id.String() + `"}`, kind: Existing},
		{name: "created option", input: `{"value":"Acme","label":"Acme","__isNew__":true}`, kind: NewLabel, label: "Acme"},
		{name: "created option blank", input: `{"label":"","__isNew__":true}`, kind: Empty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s Selection
			if err := json.Unmarshal([]byte(tc.input), &s); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Kind() != tc.kind {
				t.Fatalf("expected kind %d, got %d", tc.kind, s.Kind())
			}
			if tc.kind == Existing {
				got, ok := s.ID()
				if !ok || got != id {
					t.Fatalf("expected id %s, got %s", id, got)
				}
			}
			if tc.kind == NewLabel {
				got, _ := s.NewLabelValue()
				if got != tc.label {
					t.Fatalf("expected label %q, got %q", tc.label, got)
				}
			}
		})
	}
}

func TestUnmarshal_RejectsNumbers(t *testing.T) {
	var s Selection
	if err := json.Unmarshal([]byte(`42`), &s); err == nil {
		t.Fatalf("expected error for numeric selection")
	}
}

func TestSelection_InStruct(t *testing.T) {
	var payload struct {
		Client Selection `json:"client"`
	}
	if err := json.Unmarshal([]byte(`{}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !payload.Client.IsEmpty() {
		t.Fatalf("expected missing field to be empty")
	}
	if payload.Client.IDPtr() != nil {
		t.Fatalf("expected nil id pointer for empty selection")
	}
}

func TestMarshal_RoundTripsExisting(t *testing.T) {
	id := uuid.New()
	out, err := json.Marshal(Of(id))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `"`+id.String()+`"` {
		t.Fatalf("unexpected encoding %s", out)
	}
}
