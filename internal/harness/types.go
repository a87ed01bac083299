package harness

// Result is the outcome of a scenario execution.
//
// Solutions, Leaks and Warnings are read back from the run archive rather
// than taken from the solver directly, so a passing scenario also covers the
// archive round trip.
type Result struct {
	// Pass indicates overall success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// RunID identifies the archived run.
	RunID string `json:"run_id"`

	NumUnchecked int `json:"num_unchecked"`
	NumSolutions int `json:"num_solutions"`
	NumSelected  int `json:"num_selected"`

	// Solutions are the selected Solutions as sorted, joined edge strings.
	Solutions []string `json:"solutions"`

	// Leaks renders every leak of every selected Solution, sorted.
	Leaks []string `json:"leaks"`

	// Warnings are the run's flag warnings.
	Warnings []string `json:"warnings,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Errors:    []string{},
		Solutions: []string{},
		Leaks:     []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
