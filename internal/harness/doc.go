// Package harness runs ibis scenarios: a recipe document, solve options and
// assertions on the result.
//
// Every scenario is solved, archived into a fresh in-memory store and read
// back before assertions run, so scenarios exercise the solver and the run
// archive together.
//
// # Scenario Format
//
//	name: create_edges
//	description: "Every producer may feed every consumer"
//	loss: 0
//	planning: true
//	input:
//	  subtypes: [[Man, Mortal]]
//	  recipes:
//	    - nodes:
//	        - [p_a, a, write, Man]
//	        - [p_b, b, read, Mortal]
//	assertions:
//	  - type: solutions
//	    solutions: ["a -> b"]
//	  - type: leak_count
//	    count: 0
//
// The input may instead live in its own file (input_file: recipe.cue),
// resolved relative to the scenario.
//
// # Assertion Types
//
//   - solutions: the selected Solutions are exactly the listed set
//   - solution_count: number of selected Solutions
//   - leak_count: total leaks across the selected Solutions
//   - contains_solution: one Solution is among the selected
//
// # Golden Files
//
// RunWithGolden snapshots the archived run as canonical JSON under
// testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
