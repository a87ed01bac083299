package recipe

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// DecodeError is a document error with its CUE source position, when known.
type DecodeError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *DecodeError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// decodeCUE compiles a single CUE file, checks it against #Document and
// decodes the concrete result.
func decodeCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return decodeCUEValue(ctx, v)
}

// loadCUEDir builds the CUE package in dir as one document.
func loadCUEDir(dir string) (*Document, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &DecodeError{Field: "cue", Message: fmt.Sprintf("no CUE instances in %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &DecodeError{Field: "cue", Message: fmt.Sprintf("loading %s: %v", dir, inst.Err)}
	}

	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return decodeCUEValue(ctx, v)
}

func decodeCUEValue(ctx *cue.Context, v cue.Value) (*Document, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("recipe schema: %w", err)
	}
	checked := schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := checked.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	doc, err := decodeJSON(data)
	if err != nil {
		return nil, &DecodeError{Field: "document", Message: err.Error(), Pos: v.Pos()}
	}
	return doc, nil
}

// encodeCUE renders doc as CUE source. JSON is valid CUE, so the document
// is compiled from its JSON form and reformatted.
func encodeCUE(doc *Document) ([]byte, error) {
	data, err := Encode(doc, FormatJSON)
	if err != nil {
		return nil, err
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encode cue: %w", err)
	}
	out, err := format.Node(v.Syntax(cue.Final(), cue.Concrete(true)))
	if err != nil {
		return nil, fmt.Errorf("encode cue: %w", err)
	}
	return append(out, '\n'), nil
}

// formatCUEError returns the first CUE error with its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &DecodeError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &DecodeError{Field: "cue", Message: first.Error()}
}
