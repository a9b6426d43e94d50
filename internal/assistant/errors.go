package assistant

import "fmt"

// SubsystemError is a failure of one capability while executing a command.
// It is reported to the user and never ends the session.
type SubsystemError struct {
	Subsystem string
	Err       error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Subsystem, e.Err)
}

func (e *SubsystemError) Unwrap() error {
	return e.Err
}

// ClassificationError describes input that matched no command.
type ClassificationError struct {
	Input  string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unrecognized input %q: %s", e.Input, e.Reason)
}
