package cmd

import (
	"encoding/json"
	"io"
	"strings"
)

// ExitError signals a non-zero exit code without printing an error message.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return "" }

func jsonPrint(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// isErrorResult reports whether an evaluated value is the engine's
// "Error: ..." string.
func isErrorResult(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "Error: ")
}
