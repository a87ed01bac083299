package ir

// Version constants for the solver and its archive format.
const (
	// FormatVersion is the recipe document format version.
	FormatVersion = "1"

	// SolverVersion is the ibis solver version recorded in archived runs.
	SolverVersion = "0.1.0"
)
