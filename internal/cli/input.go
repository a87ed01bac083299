package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/roach88/ibis/internal/recipe"
)

// stdinPath names standard input as a document argument.
const stdinPath = "-"

// readDocument loads a recipe document from path, or from stdin when path
// is "-". An explicit format overrides the file extension; stdin defaults
// to JSON.
func readDocument(path, format string, stdin io.Reader) (*recipe.Document, error) {
	if path != stdinPath && format == "" {
		return recipe.Load(path)
	}

	f := recipe.FormatJSON
	if format != "" {
		var err error
		if f, err = recipe.ParseFormat(format); err != nil {
			return nil, err
		}
	}

	var (
		data []byte
		err  error
	)
	if path == stdinPath {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recipe.Decode(data, f)
}
