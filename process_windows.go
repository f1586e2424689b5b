//go:build windows

package compositor

import "syscall"

// platformSysProcAttr has no process-group equivalent wired up on
// Windows; the child is started with default process attributes.
func platformSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}
