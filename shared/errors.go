package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEvaluationUndefined marks a statistic that cannot be computed for a return
// series. It is reported alongside NaN values and never aborts a run.
var ErrEvaluationUndefined = errors.New("evaluation undefined")

// SchemaError is returned when raw data cannot be mapped to the canonical schema.
type SchemaError struct {
	Field   string
	Columns []string
}

// Error returns the schema error message.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("no column resolves the %s field, available columns: [%s]",
		e.Field, strings.Join(e.Columns, ", "))
}

// DataUnavailableError is returned when every configured data source attempt is exhausted.
type DataUnavailableError struct {
	Symbol   string
	Attempts []error
}

// Error returns the data unavailable error message.
func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for %s after %d attempt(s): %v",
		e.Symbol, len(e.Attempts), errors.Join(e.Attempts...))
}

// Unwrap returns the attempt errors.
func (e *DataUnavailableError) Unwrap() []error {
	return e.Attempts
}

// InsufficientDataError is returned when too few bars remain for the requested windows.
type InsufficientDataError struct {
	Have int
	Need int
}

// Error returns the insufficient data error message.
func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d usable bars, need at least %d", e.Have, e.Need)
}
