package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const edgesDocument = `{
  "flags": {"planning": true},
  "capabilities": [["any", "any"]],
  "recipes": [{"nodes": [["p_a", "a", "any", "Char"], ["p_b", "b", "any", "Char"]]}]
}`

const leakDocument = `{
  "capabilities": [["any", "any"]],
  "less_private_than": [["public", "private"]],
  "recipes": [
    {
      "nodes": [["p_a", "a", "any", "Data"], ["p_b", "b", "any", "Data"]],
      "claims": [["a", "private"]],
      "checks": [["b", "public"]],
      "edges": [["a", "b"]]
    }
  ]
}`

// writeFile writes content into a temporary directory and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeResponse decodes a JSON CLIResponse whose data has type T.
func decodeResponse[T any](t *testing.T, out string) (CLIResponse, T) {
	t.Helper()
	var raw struct {
		CLIResponse
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	return raw.CLIResponse, raw.Data
}
