// Package recipe is the external form of ibis inputs and results.
//
// A Document carries configuration (flags, subtypes, capabilities,
// less_private_than), a shared recipe at the top level and a list of
// recipes. Rows are positional tuples:
//
//	{
//	  "flags": {"planning": true},
//	  "capabilities": [["write", "read"]],
//	  "recipes": [
//	    {"nodes": [["p_a", "a", "write", "Unit"], ["p_out", "out", "read", "Unit"]]}
//	  ]
//	}
//
// Documents are read from JSON, YAML or CUE; CUE input is checked against
// the embedded #Document schema first. Solve pools the facts of all recipes,
// seeds one Solution per recipe and returns a Document whose recipes are the
// selected Solutions with their feedback.
package recipe
