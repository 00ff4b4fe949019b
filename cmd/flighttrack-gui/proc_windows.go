//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps the server's console window hidden.
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
