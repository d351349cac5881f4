//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"sigmem/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv reads len(localBuf) bytes at remoteAddr of pid into localBuf.
func process_vm_readv(pid process.ProcessID, localBuf []byte, remoteAddr process.ProcessMemoryAddress) (int, error) {
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
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

// ReadMemory reads size bytes at addr. The kernel checks the mapping, so reads
// of memory allocated after the last UpdateMemoryMap still work.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ReadError(addr, size, process.ErrProcessNotOpen)
	}
	if size == 0 {
		return []byte{}, nil
	}

	data := make([]byte, size)
	n, err := process_vm_readv(pid, data, addr)
	if err != nil {
		return nil, process.ReadError(addr, size, fmt.Errorf("process_vm_readv: %w", err))
	}
	if n != len(data) {
		return nil, process.ReadError(addr, size, fmt.Errorf("partial read: %d of %d bytes", n, len(data)))
	}

	return data, nil
}
