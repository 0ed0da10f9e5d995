package mapping

import "errors"

// StoreUnavailableError wraps persistence failures so callers can tell a
// missing mapping apart from an unreachable store. The resolver treats it
// as a tier miss rather than a fatal error.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return e.Err.Error()
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// IsStoreUnavailable reports whether err (or its chain) marks the mapping
// store as unreachable.
func IsStoreUnavailable(err error) bool {
	var se *StoreUnavailableError
	return errors.As(err, &se)
}
