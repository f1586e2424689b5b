//go:build !windows

package compositor

import "syscall"

// platformSysProcAttr puts the child in its own process group so that an
// external cancellation (spec §5: "process-wide cancellation is effected
// by killing the child") can target the compositor and anything it spawns
// together, without also taking down the supervisor itself.
func platformSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
