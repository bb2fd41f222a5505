// Package selection models typeahead form fields that either reference an
// existing row or carry a label the user typed in.
package selection

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Kind discriminates a Selection.
type Kind int

const (
	Empty Kind = iota
	Existing
	NewLabel
)

// ErrInvalid is returned for payloads that are neither a string, an object nor null.
var ErrInvalid = errors.New("selection: unsupported value")

// Selection is Existing(id) | NewLabel(label) | Empty.
type Selection struct {
	kind  Kind
	id    uuid.UUID
	label string
}

// Of returns an Existing selection.
func Of(id uuid.UUID) Selection { return Selection{kind: Existing, id: id} }

// Label returns a NewLabel selection, or Empty for a blank label.
func Label(label string) Selection {
	label = strings.TrimSpace(label)
	if label == "" {
		return Selection{}
	}
	return Selection{kind: NewLabel, label: label}
}

func (s Selection) Kind() Kind { return s.kind }

func (s Selection) IsEmpty() bool { return s.kind == Empty }

// ID returns the referenced id; ok is false unless the selection is Existing.
func (s Selection) ID() (uuid.UUID, bool) {
	return s.id, s.kind == Existing
}

// NewLabelValue returns the typed label; ok is false unless the selection is NewLabel.
func (s Selection) NewLabelValue() (string, bool) {
	return s.label, s.kind == NewLabel
}

// IDPtr is a convenience for nullable foreign keys.
func (s Selection) IDPtr() *uuid.UUID {
	if s.kind != Existing {
		return nil
	}
	id := s.id
	return &id
}

type wireOption struct {
	Value *string `json:"value"`
	ID    *string `json:"id"`
	Label string  `json:"label"`
	IsNew bool    `json:"__isNew__"`
}

// UnmarshalJSON accepts null, a bare id or label string, or a typeahead
// option object {value|id, label, __isNew__}.
func (s *Selection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Selection{}

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = fromString(raw)
		return nil
	case data[0] == '{':
		var opt wireOption
		if err := json.Unmarshal(data, &opt); err != nil {
			return err
		}
		if opt.IsNew {
			*s = Label(opt.Label)
			return nil
		}
		ref := opt.Value
		if ref == nil {
			ref = opt.ID
		}
		if ref != nil {
			if id, err := uuid.Parse(strings.TrimSpace(*ref)); err == nil {
				*s = Of(id)
				return nil
			}
			if opt.Label == "" {
				*s = Label(*ref)
				return nil
			}
		}
		*s = Label(opt.Label)
		return nil
	default:
		return ErrInvalid
	}
}

// MarshalJSON writes Existing as the id string, NewLabel as {label, __isNew__}
// and Empty as null.
func (s Selection) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case Existing:
		return json.Marshal(s.id.String())
	case NewLabel:
		return json.Marshal(wireOption{Label: s.label, IsNew: true})
	default:
		return []byte("null"), nil
	}
}

func fromString(raw string) Selection {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selection{}
	}
	if id, err := uuid.Parse(raw); err == nil {
		return Of(id)
	}
	return Label(raw)
}
