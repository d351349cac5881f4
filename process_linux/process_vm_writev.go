//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"sigmem/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev writes localBuf to remoteAddr of pid.
func process_vm_writev(pid process.ProcessID, localBuf []byte, remoteAddr process.ProcessMemoryAddress) (int, error) {
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		uintptr(1),
		uintptr(unsafe.Pointer(&remoteIov)),
		uintptr(1),
		uintptr(0), // flags, unused
	)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

// WriteMemory writes data at addr. Read-only pages are refused by the kernel.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	size := process.ProcessMemorySize(len(data))

	pid := p.GetPID()
	if pid == 0 {
		return process.WriteError(addr, size, process.ErrProcessNotOpen)
	}
	if len(data) == 0 {
		return nil
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	written, err := process_vm_writev(pid, dataCopy, addr)
	if err != nil {
		return process.WriteError(addr, size, fmt.Errorf("process_vm_writev: %w", err))
	}
	if written != len(data) {
		return process.WriteError(addr, size, fmt.Errorf("partial write: %d of %d bytes", written, len(data)))
	}

	return nil
}
