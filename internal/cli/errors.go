package cli

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: 2, Message: err.Error()}
}
