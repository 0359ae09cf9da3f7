package builder

import (
	"errors"
	"strconv"
)

var (
	// ErrNotClass is reported for descriptors whose element is not class-like.
	ErrNotClass = errors.New("builder: element is not a class")

	// ErrUnpackaged is returned by targets that need a package clause when the
	// qualified name has no package separator.
	ErrUnpackaged = errors.New("builder: qualified name has no package")

	// ErrDuplicateDestination is returned by sinks when a destination is
	// opened twice within one pass.
	ErrDuplicateDestination = errors.New("builder: destination already written in this pass")

	// ErrUnknownTarget is returned by TargetRegistry.Get for unregistered names.
	ErrUnknownTarget = errors.New("builder: unknown target")
)

// GenerationError is the fatal error kind: the unit could not be emitted to
// the sink. It is never retried.
type GenerationError struct {
	// Unit is the output qualified name.
	Unit string
	// Op is the failing sink step: open, write or close.
	Op  string
	Err error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	// Example: builder: open a.b.PersonBuilder: permission denied
	return "builder: " + e.Op + " " + e.Unit + ": " + errString(e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// DescriptorError reports a descriptor that cannot be rendered. Run skips the
// descriptor with a warning.
type DescriptorError struct {
	QualifiedName string
	Reason        string
	Err           error
}

// Error implements the error interface.
func (e *DescriptorError) Error() string {
	// Example: builder: descriptor "a.b.Person" invalid: duplicate field "age"
	msg := "builder: descriptor " + strconv.Quote(e.QualifiedName) + " invalid: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// IsFatal reports whether err aborts a generation pass.
func IsFatal(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
