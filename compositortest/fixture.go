// Package compositortest provides a scripted fake compositor child for
// exercising the supervisor end to end, the way test_netconf_server.go
// stands in for a real NETCONF device.
package compositortest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/damianoneill/compositor/wireframe"
)

// Step is one line of shell appended to the fake child's script.
type Step string

// ReadLine blocks the fixture until the host writes one newline-terminated
// line to its stdin (a request, or the "EOF" shutdown signal), discarding
// the contents.
func ReadLine() Step {
	return "read -r _line"
}

// EchoRequestAsFrame reads one request line, extracts its nonce, and
// replies with a frame carrying that nonce, the given status, and payload.
// It's the building block for a fixture that behaves like a real
// compositor answering exactly the command it was just sent.
func EchoRequestAsFrame(status wireframe.Status, payload []byte) Step {
	tail := fmt.Sprintf(":%d:%d:%s", len(payload), int(status), shellDoubleQuoteEscape(string(payload)))
	return Step(fmt.Sprintf(
		`read -r _line
_nonce=$(printf '%%s' "$_line" | sed -n 's/.*"nonce":"\([^"]*\)".*/\1/p')
printf '%%s' "%s$_nonce%s"`,
		wireframe.Marker, tail,
	))
}

// EmitFrame unconditionally writes one complete frame with a fixed nonce,
// status, and payload — used for diagnostic frames and any response whose
// nonce doesn't need to be echoed back from a request.
func EmitFrame(nonce string, status wireframe.Status, payload []byte) Step {
	frame := fmt.Sprintf("%s%s:%d:%d:%s", wireframe.Marker, nonce, len(payload), int(status), payload)
	return Step(fmt.Sprintf("printf '%%s' %s", shellSingleQuote(frame)))
}

// EmitRaw writes literal, unframed bytes, for exercising noise handling.
func EmitRaw(raw string) Step {
	return Step(fmt.Sprintf("printf '%%s' %s", shellSingleQuote(raw)))
}

// Sleep pauses the fixture for the given number of whole seconds, to let
// a test observe an intermediate state before the script continues.
func Sleep(seconds int) Step {
	return Step(fmt.Sprintf("sleep %d", seconds))
}

// ExitCrash writes msg to stderr and exits non-zero, simulating a crash.
func ExitCrash(msg string) Step {
	return Step(fmt.Sprintf("printf '%%s' %s 1>&2\nexit 1", shellSingleQuote(msg)))
}

// NewFakeChild writes steps out as a POSIX shell script, marks it
// executable, and returns its path. The script exits 0 (clean) unless a
// step calls exit itself. The file is removed when the test completes.
func NewFakeChild(t *testing.T, steps ...Step) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("set -e\n")
	for _, s := range steps {
		b.WriteString(string(s))
		b.WriteString("\n")
	}
	b.WriteString("exit 0\n")

	path := filepath.Join(t.TempDir(), "fake-compositor.sh")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o755))
	return path
}

func shellSingleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellDoubleQuoteEscape escapes the characters a POSIX shell still
// treats specially inside double quotes, so a literal payload can be
// embedded in a double-quoted printf argument.
func shellDoubleQuoteEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	return r.Replace(s)
}
