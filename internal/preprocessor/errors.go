package preprocessor

import (
	"errors"
	"fmt"
)

var (
	// ErrLookup reports a namespace or file missing from the registered sources.
	ErrLookup = errors.New("lookup failure")
	// ErrUnexpectedToken reports a directive with a missing or mistyped argument.
	ErrUnexpectedToken = errors.New("unexpected token")
	// ErrDirective is returned when an error directive fires.
	ErrDirective = errors.New("error directive")
)

// Error locates a failure in the preprocessed sources.
type Error struct {
	Namespace string
	File      string
	Line      int
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.File == "":
		return e.Err.Error()
	case e.Line == 0:
		return fmt.Sprintf("%s/%s: %s", e.Namespace, e.File, e.Err)
	}
	return fmt.Sprintf("%s/%s:%d: %s", e.Namespace, e.File, e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// aborted carries an error out of a nested include. It already went through
// the OnError hook and must not be offered to it again.
type aborted struct{ error }
