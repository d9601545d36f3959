package media

import "fmt"

// ConnectionError is a media connect, publish, or subscribe failure
// surfaced to the caller with a human-readable cause. A disconnect the
// local client asked for is swallowed and never wrapped in one.
type ConnectionError struct {
	Op    string // connect, publish, subscribe, attach
	Cause string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("media %s failed: %s", e.Op, e.Cause)
}

func newConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Cause: err.Error()}
}
