package compositor

import (
	"context"
	"reflect"

	"github.com/charmbracelet/log"
)

// unique type to prevent assignment.
type traceContextKey struct{}

// ContextTrace returns the SupervisorTrace associated with the provided
// context. If none, it returns nil.
func ContextTrace(ctx context.Context) *SupervisorTrace {
	trace, _ := ctx.Value(traceContextKey{}).(*SupervisorTrace)
	return trace
}

// WithTrace returns a new context based on the provided parent ctx.
// Supervisors constructed with the returned context use the provided
// trace hooks, in addition to any previously registered with ctx. Hooks
// in the provided trace are called first.
func WithTrace(ctx context.Context, trace *SupervisorTrace) context.Context {
	if trace == nil {
		panic("nil trace")
	}
	old := ContextTrace(ctx)
	trace.compose(old)
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// SupervisorTrace defines hooks for observing supervisor activity. The
// core emits exactly one verbose-level log stream, keyed on the reserved
// diagnostic nonce, plus a handful of lifecycle/error hooks; it does not
// otherwise prescribe a logging framework.
type SupervisorTrace struct {
	// ChildStarted is called once the child process has been spawned.
	ChildStarted func(pid int)

	// Diagnostic is called for every frame tagged with DiagnosticNonce.
	Diagnostic func(message string)

	// CommandSubmitted is called before a command is written to the
	// child's stdin.
	CommandSubmitted func(nonce, commandType string)

	// CommandCompleted is called after a response frame resolves or
	// rejects a command's waiter. It is not called for waiters rejected by
	// a lifecycle transition.
	CommandCompleted func(nonce string, err error)

	// LifecycleTransitioned is called when RunningStatus leaves Running.
	LifecycleTransitioned func(status RunningStatus, stderr string)

	// Error is called when the frame parser reports a protocol violation
	// on the child's stdout. Stdin write failures are returned to the
	// caller and are not reported through this hook.
	Error func(context string, err error)
}

// compose modifies t such that it respects the previously-registered
// hooks in old, calling t's hook first.
func (t *SupervisorTrace) compose(old *SupervisorTrace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it creates a
		// recursive call cycle and stack overflows.)
		tfCopy := reflect.ValueOf(tf.Interface())

		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			tfCopy.Call(args)
			return of.Call(args)
		})
		tv.Field(i).Set(newFunc)
	}
}

// DefaultTrace wires every hook to a single github.com/charmbracelet/log
// logger, tagged "compositor". NewSupervisor always installs it; a trace
// supplied through WithTrace is composed with it rather than replacing it.
func DefaultTrace(logger *log.Logger) *SupervisorTrace {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("component", "compositor")

	return &SupervisorTrace{
		ChildStarted: func(pid int) {
			logger.Info("child started", "pid", pid)
		},
		Diagnostic: func(message string) {
			logger.Debug(message, "nonce", DiagnosticNonce)
		},
		CommandSubmitted: func(nonce, commandType string) {
			logger.Debug("command submitted", "nonce", nonce, "type", commandType)
		},
		CommandCompleted: func(nonce string, err error) {
			if err != nil {
				logger.Debug("command failed", "nonce", nonce, "err", err)
				return
			}
			logger.Debug("command completed", "nonce", nonce)
		},
		LifecycleTransitioned: func(status RunningStatus, stderr string) {
			if status == QuitWithError {
				logger.Warn("child exited abnormally", "status", status.String(), "stderr", stderr)
				return
			}
			logger.Info("child exited", "status", status.String())
		},
		Error: func(context string, err error) {
			logger.Error(context, "err", err)
		},
	}
}
