package compositor

import (
	"context"

	"github.com/pkg/errors"
)

// Executable supplies the filesystem path of the rendering helper binary;
// setting its executable bit is done by the supervisor when it spawns the
// child. Discovering the binary and computing its dynamic
// library search paths are external concerns (spec §1's Non-goals); this
// module only needs a filesystem path to hand to os/exec.
type Executable interface {
	Path() string
}

// ExecutablePath adapts a plain string path to Executable.
type ExecutablePath string

// Path implements Executable.
func (p ExecutablePath) Path() string { return string(p) }

// NewSupervisor spawns the rendering helper at exe's path with startCmd as
// its sole startup argument, and returns a Gateway wired to it. If ctx
// carries a trace installed via WithTrace, that trace is composed under
// the default charmbracelet/log-backed trace; otherwise the default
// trace alone is used.
func NewSupervisor(ctx context.Context, exe Executable, startCmd Command, cfg *SupervisorConfig) (*Gateway, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "compositor: failed to resolve configuration")
	}

	trace := DefaultTrace(nil)
	trace.compose(ContextTrace(ctx))

	reg := newRegistry()
	lc := newLifecycle(reg, trace)

	g := &Gateway{
		registry:  reg,
		lifecycle: lc,
		trace:     trace,
		nonce:     resolved.NonceSource,
		cfg:       resolved,
	}

	child, err := spawnChild(exe.Path(), startCmd, resolved)
	if err != nil {
		return nil, err
	}
	g.child = child

	child.onFrame = g.feedDispatch
	child.onFatal = func(err error) {
		if trace.Error != nil {
			trace.Error("frame parser", err)
		}
		lc.transitionCrashed(child.stderrText())
	}
	child.onExit = func(cleanExit bool) {
		if cleanExit {
			lc.transitionClean()
		} else {
			lc.transitionCrashed(child.stderrText())
		}
	}

	child.start()

	if trace.ChildStarted != nil {
		trace.ChildStarted(child.pid())
	}

	return g, nil
}
