//go:build !windows

package engine

import "syscall"

// forceKill delivers SIGKILL to a single process.
func forceKill(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

// signalGroup delivers sig to the process group rooted at pid. The engine
// is spawned with its own process group so children are covered.
func signalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}
