package cli

import (
	"database/sql"
	"errors"
	"os"
	"strconv"

	"github.com/roach88/ibis/internal/ir"
	"github.com/roach88/ibis/internal/recipe"
	"github.com/roach88/ibis/internal/solver"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeReadFailed  = "E003" // Input could not be read
	ErrCodeDecode      = "E004" // Document decode or schema error
	ErrCodeNotFound    = "E005" // Path or run not found
	ErrCodeInvalidFlag = "E006" // Invalid flag value
	ErrCodeWriteFailed = "E007" // File write error

	// Type errors
	ErrCodeParseType = "E101" // Malformed type text

	// Solve errors
	ErrCodeQuota        = "E201" // Solution bound exceeded
	ErrCodeClosureLimit = "E202" // Type closure too large
	ErrCodeUnknownNode  = "E203" // Edge names an undeclared node
	ErrCodeCancelled    = "E204" // Solve interrupted

	// Archive errors
	ErrCodeArchive = "E301" // Archive open/read/write failed

	// Scenario errors
	ErrCodeTestFailed = "E401" // One or more scenarios failed
)

// errorCodeFor maps an error to its CLI error code.
func errorCodeFor(err error) string {
	var decodeErr *recipe.DecodeError
	switch {
	case err == nil:
		return ErrCodeGeneric
	case solver.IsQuotaError(err):
		return ErrCodeQuota
	case solver.IsClosureLimitError(err):
		return ErrCodeClosureLimit
	case solver.IsUnknownNodeError(err):
		return ErrCodeUnknownNode
	case solver.IsCancelledError(err):
		return ErrCodeCancelled
	case ir.IsParseError(err):
		return ErrCodeParseType
	case errors.As(err, &decodeErr):
		return ErrCodeDecode
	case errors.Is(err, os.ErrNotExist), errors.Is(err, sql.ErrNoRows):
		return ErrCodeNotFound
	default:
		return ErrCodeGeneric
	}
}

// errorDetails extracts structured context from an error, or nil.
func errorDetails(err error) any {
	var (
		decodeErr *recipe.DecodeError
		parseErr  *ir.ParseError
		runErr    *solver.RuntimeError
	)
	switch {
	case errors.As(err, &runErr):
		if len(runErr.Details) == 0 {
			return nil
		}
		return runErr.Details
	case errors.As(err, &parseErr):
		return map[string]string{
			"input":  parseErr.Input,
			"offset": strconv.Itoa(parseErr.Offset),
			"reason": parseErr.Reason,
		}
	case errors.As(err, &decodeErr):
		details := map[string]string{"field": decodeErr.Field}
		if decodeErr.Pos.IsValid() {
			details["file"] = decodeErr.Pos.Filename()
			details["line"] = strconv.Itoa(decodeErr.Pos.Line())
			details["column"] = strconv.Itoa(decodeErr.Pos.Column())
		}
		return details
	default:
		return nil
	}
}
