//go:build windows

package engine

import "syscall"

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const processTerminate = 0x0001

// forceKill terminates a Windows process by PID. A process that cannot be
// opened is assumed already gone.
func forceKill(pid int) error {
	if pid <= 0 {
		return nil
	}
	ret, _, err := procOpenProcess.Call(uintptr(uint32(processTerminate)), 0, uintptr(uint32(pid)))
	if ret == 0 {
		return nil
	}
	handle := syscall.Handle(ret)
	defer func() { _, _, _ = procCloseHandle.Call(uintptr(handle)) }()
	if r, _, terr := procTerminateProcess.Call(uintptr(handle), 1); r == 0 {
		return terr
	}
	_ = err
	return nil
}

// signalGroup has no process-group semantics on Windows; it terminates the
// root process only.
func signalGroup(pid int, _ syscall.Signal) error {
	return forceKill(pid)
}
