package compositor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrAlreadyQuitClean is returned synchronously by Gateway preconditions
// once the child has exited cleanly.
var ErrAlreadyQuitClean = errors.New("compositor: already quit")

// QuitWithErrorError is returned synchronously by Gateway preconditions,
// and used to reject WaitForDone, once the child has crashed. Stderr holds
// whatever the child wrote to its error stream before exiting.
type QuitWithErrorError struct {
	Stderr string
}

func (e *QuitWithErrorError) Error() string {
	return fmt.Sprintf("compositor: quit with error: %s", e.Stderr)
}

// CompositorError is the rejection delivered to a waiter when the child
// replies to its request with a well-formed JSON error payload.
type CompositorError struct {
	Message   string
	Backtrace string
}

func (e *CompositorError) Error() string {
	return fmt.Sprintf("Compositor error: %s\n%s", e.Message, e.Backtrace)
}

// CompositorRawError is the rejection delivered to a waiter when the
// child's error payload doesn't parse as the expected JSON shape.
type CompositorRawError struct {
	Raw string
}

func (e *CompositorRawError) Error() string {
	return e.Raw
}

// CompositorPanickedError is the rejection broadcast to every pending
// waiter, and to WaitForDone, when the child exits with a non-zero code.
type CompositorPanickedError struct {
	Stderr string
}

func (e *CompositorPanickedError) Error() string {
	return fmt.Sprintf("compositor: child process exited abnormally: %s", e.Stderr)
}

// ProtocolViolationError rejects a waiter whose frame carries a status the
// dispatcher doesn't recognize. Malformed frame headers are reported by the
// wireframe parser instead (see wireframe.IsProtocolViolation); those are
// fatal and move the Lifecycle to QuitWithError.
type ProtocolViolationError struct {
	Detail string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("compositor: protocol violation: %s", e.Detail)
}
