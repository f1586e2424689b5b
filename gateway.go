package compositor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/damianoneill/compositor/wireframe"
)

// Gateway is the public surface of the compositor supervisor: submit
// commands, signal orderly shutdown, wait for the child to finish, and
// read back its process id.
type Gateway struct {
	child     *childProcess
	registry  *registry
	lifecycle *lifecycle
	trace     *SupervisorTrace
	nonce     NonceSource
	cfg       *SupervisorConfig
}

// ExecuteCommand submits a command to the child and returns a channel
// that receives exactly one result: the raw response payload on success,
// or the error that completed the request (a compositor-reported error,
// or a lifecycle rejection if the child dies first).
//
// ExecuteCommand fails synchronously, without touching the child, if the
// lifecycle has already left Running.
func (g *Gateway) ExecuteCommand(ctx context.Context, cmd Command) (<-chan []byte, <-chan error) {
	payload := make(chan []byte, 1)
	failure := make(chan error, 1)

	if status, stderr := g.lifecycle.Status(); status != Running {
		failure <- quitError(status, stderr)
		return payload, failure
	}

	nonce := g.nonce()
	w := newWaiter()
	g.registry.insert(nonce, w)

	line, err := encodeRequest(nonce, cmd)
	if err != nil {
		g.registry.take(nonce)
		failure <- errors.Wrap(err, "compositor: failed to serialize command")
		return payload, failure
	}

	if g.trace != nil && g.trace.CommandSubmitted != nil {
		g.trace.CommandSubmitted(nonce, cmd.Type)
	}

	if err := g.child.write(line, g.cfg.StdinWriteTimeout); err != nil {
		g.registry.take(nonce)
		failure <- err
		return payload, failure
	}

	go func() {
		select {
		case res := <-w.done:
			if res.err != nil {
				failure <- res.err
			} else {
				payload <- res.payload
			}
		case <-ctx.Done():
			// The caller abandoned the request. The waiter stays
			// registered: a late frame or a lifecycle transition will
			// still drain it, per spec §5's cancellation model ("callers
			// abandoning a future simply drop their handle").
			failure <- ctx.Err()
		}
	}()

	return payload, failure
}

// FinishCommands signals the child to finish processing outstanding work
// and exit cleanly, by writing the literal line "EOF\n" to its stdin. It
// does not itself wait for the exit; pair it with WaitForDone.
func (g *Gateway) FinishCommands() error {
	if status, stderr := g.lifecycle.Status(); status != Running {
		return quitError(status, stderr)
	}
	return g.child.write([]byte("EOF\n"), g.cfg.StdinWriteTimeout)
}

// WaitForDone returns a channel resolved with nil on clean exit, or an
// error carrying the child's stderr on crash. If the child has already
// quit cleanly, it fails with ErrAlreadyQuitClean — callers must install
// WaitForDone before calling FinishCommands to observe a clean exit (see
// the spec's Open Questions; this is preserved intentionally, not a bug
// fix).
//
// For the first ShutdownGracePeriod after the call, ctx's cancellation is
// ignored, giving the child a fair chance to exit on its own; only once
// that window elapses does ctx's cancellation take over and fail the
// returned channel with ctx.Err().
func (g *Gateway) WaitForDone(ctx context.Context) <-chan error {
	inner := g.lifecycle.awaitDone()
	result := make(chan error, 1)

	go func() {
		grace := time.NewTimer(g.cfg.ShutdownGracePeriod)
		defer grace.Stop()

		select {
		case err := <-inner:
			result <- err
			return
		case <-grace.C:
		}

		select {
		case err := <-inner:
			result <- err
		case <-ctx.Done():
			result <- ctx.Err()
		}
	}()

	return result
}

// Pid returns the child's OS process id, or NoPID if it couldn't be
// obtained.
func (g *Gateway) Pid() int {
	return g.child.pid()
}

func quitError(status RunningStatus, stderr string) error {
	if status == QuitWithError {
		return &QuitWithErrorError{Stderr: stderr}
	}
	return ErrAlreadyQuitClean
}

func encodeRequest(nonce string, cmd Command) ([]byte, error) {
	req := request{Nonce: nonce, Payload: cmd}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

// feedDispatch is wired as the childProcess's onFrame callback.
func (g *Gateway) feedDispatch(f wireframe.Frame) {
	dispatchFrame(f, g.registry, g.trace)
}
