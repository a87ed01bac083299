package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ibis/internal/ir"
	"github.com/roach88/ibis/internal/recipe"
)

// Feedback kinds as stored in feedback.kind.
const (
	kindHasTag          = "has_tag"
	kindLeak            = "leak"
	kindTypeError       = "type_error"
	kindCapabilityError = "capability_error"
)

// feedbackRow is one feedback fact ready for insertion.
type feedbackRow struct {
	kind string
	row  string
}

// marshalStrings converts a string list to canonical JSON TEXT.
func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := ir.MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings parses a JSON TEXT string list. Empty lists read as nil.
func unmarshalStrings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return out, nil
}

// feedbackRows flattens r's feedback in a fixed kind order.
func feedbackRows(fb recipe.Feedback) ([]feedbackRow, error) {
	var rows []feedbackRow
	add := func(kind string, cols ...string) error {
		text, err := marshalStrings(cols)
		if err != nil {
			return err
		}
		rows = append(rows, feedbackRow{kind: kind, row: text})
		return nil
	}
	for _, h := range fb.HasTags {
		if err := add(kindHasTag, h.Source, h.Node, h.Tag); err != nil {
			return nil, err
		}
	}
	for _, l := range fb.Leaks {
		if err := add(kindLeak, l.Node, l.Expected, l.Source, l.Found); err != nil {
			return nil, err
		}
	}
	for _, e := range fb.TypeErrors {
		if err := add(kindTypeError, e.From, e.FromType, e.To, e.ToType); err != nil {
			return nil, err
		}
	}
	for _, e := range fb.CapabilityErrors {
		if err := add(kindCapabilityError, e.From, e.FromCap, e.To, e.ToCap); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// addFeedbackRow decodes a stored row back into fb.
func addFeedbackRow(fb *recipe.Feedback, kind, row string) error {
	cols, err := unmarshalStrings(row)
	if err != nil {
		return err
	}
	want := 4
	if kind == kindHasTag {
		want = 3
	}
	if len(cols) != want {
		return fmt.Errorf("feedback %s: expected %d columns, got %d", kind, want, len(cols))
	}

	switch kind {
	case kindHasTag:
		fb.HasTags = append(fb.HasTags, recipe.HasTag{Source: cols[0], Node: cols[1], Tag: cols[2]})
	case kindLeak:
		fb.Leaks = append(fb.Leaks, recipe.Leak{Node: cols[0], Expected: cols[1], Source: cols[2], Found: cols[3]})
	case kindTypeError:
		fb.TypeErrors = append(fb.TypeErrors, recipe.TypeError{From: cols[0], FromType: cols[1], To: cols[2], ToType: cols[3]})
	case kindCapabilityError:
		fb.CapabilityErrors = append(fb.CapabilityErrors, recipe.CapabilityError{From: cols[0], FromCap: cols[1], To: cols[2], ToCap: cols[3]})
	default:
		return fmt.Errorf("unknown feedback kind %q", kind)
	}
	return nil
}
