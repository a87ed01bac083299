package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ibis/internal/solution"
)

func report(id solution.ID, edges int, valid bool) Report {
	r := Report{Solution: id, Edges: make([]solution.Edge, edges)}
	if !valid {
		r.Feedback.Leaks = []Leak{{}}
	}
	return r
}

func ids(reports []Report) []solution.ID {
	out := make([]solution.ID, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Solution)
	}
	return out
}

func TestSelect(t *testing.T) {
	reports := []Report{
		report(0, 0, true),
		report(1, 1, true),
		report(2, 2, true),
		report(3, 3, false),
	}

	tests := []struct {
		name string
		loss *int
		want []solution.ID
	}{
		{"all valid", nil, []solution.ID{0, 1, 2}},
		{"max over valid only", intPtr(0), []solution.ID{2}},
		{"loss of one", intPtr(1), []solution.ID{1, 2}},
		{"loss clamps at zero", intPtr(99), []solution.ID{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Select(reports, tt.loss)))
		})
	}
}

func TestSelectAll(t *testing.T) {
	reports := []Report{
		report(0, 0, true),
		report(3, 3, false),
	}

	assert.Equal(t, []solution.ID{0, 3}, ids(SelectAll(reports, nil)))
	assert.Equal(t, []solution.ID{3}, ids(SelectAll(reports, intPtr(0))))
	assert.Len(t, reports, 2, "input is not modified")
	assert.Equal(t, solution.ID(0), reports[0].Solution)
}

func TestSelect_EmptyIsNormal(t *testing.T) {
	assert.Empty(t, Select([]Report{report(1, 1, false)}, nil))
	assert.Empty(t, Select(nil, intPtr(0)))
}
