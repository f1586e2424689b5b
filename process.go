package compositor

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/damianoneill/compositor/wireframe"
)

// childProcess wraps the spawned rendering helper: its stdin writer, the
// incremental parser fed from its stdout, and an accumulator for its
// stderr, inspected only on abnormal exit.
type childProcess struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	stderr  io.ReadCloser
	stdinMu sync.Mutex

	stderrMu  sync.Mutex
	stderrBuf bytes.Buffer
	stderrCap int

	pumpsDone sync.WaitGroup

	onFrame func(wireframe.Frame)
	onFatal func(error)
	onExit  func(cleanExit bool)
}

// spawnChild ensures the executable bit is set (unless the host signals a
// read-only filesystem), augments the environment, and starts the
// process with startCmd serialized as its sole argv[1] value.
func spawnChild(path string, startCmd Command, cfg *SupervisorConfig) (*childProcess, error) {
	if os.Getenv("READ_ONLY_FS") == "" {
		if err := os.Chmod(path, 0o755); err != nil {
			return nil, errors.Wrap(err, "compositor: failed to set executable permission")
		}
	}

	argJSON, err := json.Marshal(startCmd)
	if err != nil {
		return nil, errors.Wrap(err, "compositor: failed to serialize start command")
	}

	cmd := exec.Command(path, string(argJSON))
	cmd.Env = cfg.EnvAugmenter.AugmentEnv(os.Environ())
	cmd.SysProcAttr = platformSysProcAttr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "compositor: failed to open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, errors.Wrap(err, "compositor: failed to open stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, errors.Wrap(err, "compositor: failed to open stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, errors.Wrap(err, "compositor: failed to start child process")
	}

	c := &childProcess{
		cmd:       cmd,
		stdin:     stdin,
		stderrCap: cfg.StderrBufferCap,
		stdout:    stdout,
		stderr:    stderr,
	}

	return c, nil
}

// start launches the stdout/stderr pump goroutines and the exit watcher.
// It must not be called until onFrame, onFatal, and onExit are all set.
func (c *childProcess) start() {
	c.pumpsDone.Add(2)
	go c.pumpStdout(c.stdout)
	go c.pumpStderr(c.stderr)
	go c.awaitExit()
}

// pid returns the child's OS process id, or NoPID if unavailable.
func (c *childProcess) pid() int {
	if c.cmd.Process == nil {
		return NoPID
	}
	return c.cmd.Process.Pid
}

// write sends a single already-newline-terminated line to the child's
// stdin, failing it as a submission error if it's still blocked after
// timeout (OS pipe backpressure: the child isn't reading fast enough).
// Concurrent callers are serialized: the gateway submits commands from
// one logical event loop, but write is kept safe independently in case
// that invariant is ever relaxed.
//
// A timed-out write leaves its underlying stdin.Write goroutine running
// until the child eventually reads or the pipe is torn down; os/exec's
// pipe doesn't offer a portable way to cancel an in-flight write, so this
// trades a leaked goroutine for never hanging the caller indefinitely.
func (c *childProcess) write(line []byte, timeout time.Duration) error {
	c.stdinMu.Lock()
	defer c.stdinMu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.stdin.Write(line)
		done <- err
	}()

	select {
	case err := <-done:
		return errors.Wrap(err, "compositor: failed to write to child stdin")
	case <-time.After(timeout):
		return errors.New("compositor: write to child stdin timed out")
	}
}

// pumpStdout reads until the child's stdout pipe EOFs (which happens as
// soon as the child exits, independent of awaitExit's call to cmd.Wait)
// or the parser reports a protocol violation, and signals pumpsDone so
// awaitExit never calls cmd.Wait while a read is still outstanding — see
// the doc on awaitExit.
func (c *childProcess) pumpStdout(r io.Reader) {
	defer c.pumpsDone.Done()

	var parser wireframe.Parser
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			frames, parseErr := parser.Feed(buf[:n])
			for _, f := range frames {
				c.onFrame(f)
			}
			if parseErr != nil {
				c.onFatal(errors.Wrap(parseErr, "compositor: malformed frame on child stdout"))
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *childProcess) pumpStderr(r io.Reader) {
	defer c.pumpsDone.Done()

	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.stderrMu.Lock()
			c.stderrBuf.Write(buf[:n])
			if excess := c.stderrBuf.Len() - c.stderrCap; excess > 0 {
				c.stderrBuf.Next(excess)
			}
			c.stderrMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (c *childProcess) stderrText() string {
	c.stderrMu.Lock()
	defer c.stderrMu.Unlock()
	return c.stderrBuf.String()
}

// awaitExit waits for both pumps to observe EOF on their pipes before
// calling cmd.Wait: Wait closes the read end of stdout/stderr as soon as
// it sees the process exit, and the standard library's own documentation
// for StdoutPipe/StderrPipe warns that calling Wait before all reads have
// completed is incorrect — it can race a pump's in-flight Read and drop
// the last bytes the child wrote (including a final response frame)
// before the Lifecycle ever sees them.
func (c *childProcess) awaitExit() {
	c.pumpsDone.Wait()
	err := c.cmd.Wait()
	_ = c.stdin.Close()
	c.onExit(err == nil)
}
