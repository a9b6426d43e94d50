package scan

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTarget = errors.New("invalid target")
	ErrInvalidRange  = errors.New("invalid port range")
	ErrOutOfScope    = errors.New("target is out of scope")
	ErrHostDown      = errors.New("host seems down")
)

// Kind classifies why an invocation failed.
type Kind int

const (
	KindFailed Kind = iota
	KindUnreachable
	KindPermissionDenied
	KindToolNotFound
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindPermissionDenied:
		return "permission denied"
	case KindToolNotFound:
		return "tool not found"
	case KindTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

// Error is returned by an Invoker when a scan process could not produce
// output for its mode.
type Error struct {
	Kind   Kind
	Mode   Mode
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("nmap %s %s: %s", e.Mode, e.Target, e.Kind)
	}
	return fmt.Sprintf("nmap %s %s: %s: %v", e.Mode, e.Target, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a scan Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var scanErr *Error
	return errors.As(err, &scanErr) && scanErr.Kind == kind
}

// ParseError means the scan output could not be decoded at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed scan output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
