package store

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/ibis/internal/ir"
	"github.com/roach88/ibis/internal/recipe"
)

// RunIDGenerator produces run ids.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RunRecord is one archived solve.
type RunRecord struct {
	ID string

	// Seq is the archive's logical order, assigned by WriteRun.
	Seq int64

	InputDigest string
	Planning    bool
	Loss        *int

	NumUnchecked int
	NumSolutions int
	NumSelected  int

	Warnings      []string
	SolverVersion string

	// Solutions holds the selected recipes: digest, edges and feedback.
	// ListRuns leaves it nil.
	Solutions []recipe.Recipe
}

// NewRunRecord builds the record of solving in into out.
func NewRunRecord(id string, in, out *recipe.Document, planning bool, loss *int) (RunRecord, error) {
	digest, err := in.Digest()
	if err != nil {
		return RunRecord{}, fmt.Errorf("new run record: %w", err)
	}
	return RunRecord{
		ID:            id,
		InputDigest:   digest,
		Planning:      planning,
		Loss:          loss,
		NumUnchecked:  out.NumUnchecked,
		NumSolutions:  out.NumSolutions,
		NumSelected:   out.NumSelected,
		Warnings:      out.Warnings,
		SolverVersion: ir.SolverVersion,
		Solutions:     out.Recipes,
	}, nil
}
