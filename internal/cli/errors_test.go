package cli

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ibis/internal/ir"
	"github.com/roach88/ibis/internal/recipe"
	"github.com/roach88/ibis/internal/solver"
)

func TestErrorCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ErrCodeGeneric},
		{"plain", fmt.Errorf("boom"), ErrCodeGeneric},
		{"quota", fmt.Errorf("solve: %w", &solver.QuotaExceededError{Solutions: 6, Limit: 5}), ErrCodeQuota},
		{"closure limit", solver.NewClosureLimitError(10, 5), ErrCodeClosureLimit},
		{"unknown node", fmt.Errorf("seed: %w", solver.NewUnknownNodeError("ghost")), ErrCodeUnknownNode},
		{"cancelled", solver.NewCancelledError(fmt.Errorf("interrupt")), ErrCodeCancelled},
		{"parse", fmt.Errorf("node a type: %w", &ir.ParseError{Input: "List(", Offset: 5, Reason: "eof"}), ErrCodeParseType},
		{"decode", &recipe.DecodeError{Field: "cue", Message: "conflict"}, ErrCodeDecode},
		{"missing file", fmt.Errorf("load: %w", os.ErrNotExist), ErrCodeNotFound},
		{"missing run", fmt.Errorf("read run: %w", sql.ErrNoRows), ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCodeFor(tt.err))
		})
	}
}

func TestErrorDetails(t *testing.T) {
	assert.Nil(t, errorDetails(fmt.Errorf("boom")))

	details := errorDetails(&ir.ParseError{Input: "List(", Offset: 5, Reason: "eof"})
	assert.Equal(t, map[string]string{"input": "List(", "offset": "5", "reason": "eof"}, details)

	details = errorDetails(&recipe.DecodeError{Field: "cue", Message: "conflict"})
	assert.Equal(t, map[string]string{"field": "cue"}, details)
}
