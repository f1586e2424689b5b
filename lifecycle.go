package compositor

import "sync"

// lifecycle is the tri-state machine {running, quit-ok, quit-err}. It
// owns the transition from Running to a terminal state, the mass-reject
// of every pending waiter that transition triggers, and the resolution
// of any outstanding WaitForDone callers.
type lifecycle struct {
	mu     sync.Mutex
	status RunningStatus
	stderr string

	registry *registry
	trace    *SupervisorTrace

	doneWaiters []chan error
}

func newLifecycle(reg *registry, trace *SupervisorTrace) *lifecycle {
	return &lifecycle{status: Running, registry: reg, trace: trace}
}

// Status reports the current RunningStatus and, if terminal and abnormal,
// the accumulated stderr text.
func (l *lifecycle) Status() (RunningStatus, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, l.stderr
}

// awaitDone installs a completion channel resolved on clean exit and
// rejected (with the stderr text) on crash. If the child has already
// terminated, it resolves/rejects synchronously against the caller's
// channel instead of installing anything — matching the Gateway's
// preconditions for WaitForDone.
//
// As the spec's Open Questions note, WaitForDone rejects (rather than
// resolves) even when the prior exit was clean, if it's called after the
// transition has already happened — callers must install it before
// FinishCommands to observe a clean resolution. This is preserved
// verbatim even though it's plausibly a bug in the original design.
func (l *lifecycle) awaitDone() <-chan error {
	ch := make(chan error, 1)

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.status {
	case QuitWithoutError:
		ch <- ErrAlreadyQuitClean
		return ch
	case QuitWithError:
		ch <- &QuitWithErrorError{Stderr: l.stderr}
		return ch
	default:
		l.doneWaiters = append(l.doneWaiters, ch)
		return ch
	}
}

// transitionClean moves the lifecycle to QuitWithoutError. It's a no-op
// if a transition has already happened.
func (l *lifecycle) transitionClean() {
	l.transition(QuitWithoutError, "")
}

// transitionCrashed moves the lifecycle to QuitWithError, carrying the
// accumulated stderr text. It's a no-op if a transition has already
// happened — the first transition wins.
func (l *lifecycle) transitionCrashed(stderr string) {
	l.transition(QuitWithError, stderr)
}

func (l *lifecycle) transition(status RunningStatus, stderr string) {
	l.mu.Lock()
	if l.status != Running {
		l.mu.Unlock()
		return
	}
	l.status = status
	l.stderr = stderr
	doneWaiters := l.doneWaiters
	l.doneWaiters = nil
	l.mu.Unlock()

	var crashErr error
	if status == QuitWithError {
		crashErr = &CompositorPanickedError{Stderr: stderr}
	}

	for _, w := range l.registry.drain() {
		if crashErr != nil {
			w.reject(crashErr)
		} else {
			w.reject(ErrAlreadyQuitClean)
		}
	}

	for _, ch := range doneWaiters {
		if status == QuitWithoutError {
			ch <- nil
		} else {
			ch <- crashErr
		}
	}

	if l.trace != nil && l.trace.LifecycleTransitioned != nil {
		l.trace.LifecycleTransitioned(status, stderr)
	}
}
