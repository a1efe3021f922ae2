package ports

import "errors"

var (
	// ErrGeocodeNotFound means the starting place name could not be resolved.
	// It aborts a sweep before any oracle call is made.
	ErrGeocodeNotFound = errors.New("geocode: place not found")

	// ErrPlaceNotFound means a place ref no longer resolves to a record.
	// Hydration drops the ref silently.
	ErrPlaceNotFound = errors.New("place not found")
)

// TransientError marks an oracle failure the decomposer may recover from by
// splitting the region, as opposed to a fatal error that aborts the sweep.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a recoverable oracle failure. A nil err stays nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is a recoverable oracle failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
