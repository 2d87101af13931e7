package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/stagehand/internal/mockstore"
	"github.com/roach88/stagehand/internal/record"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation or build failure
	ExitCommandError = 2 // Command error (bad paths, unreadable files, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return ExitFailure
	}
	return ExitSuccess
}

// writeDataset renders a mock dataset in the selected format.
func writeDataset(w io.Writer, store *mockstore.Store, format string) error {
	if format == "json" {
		payload := make(map[string][]map[string]any)
		for _, t := range store.Types() {
			for _, e := range store.Retrieve(t) {
				row := map[string]any{"id": string(e.Identity())}
				fields := make(map[string]any)
				for _, name := range e.FieldNames() {
					v, _ := e.Get(name)
					fields[name] = record.Canonical(v)
				}
				row["fields"] = fields
				payload[string(t)] = append(payload[string(t)], row)
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	_, err := io.WriteString(w, store.Render())
	return err
}
