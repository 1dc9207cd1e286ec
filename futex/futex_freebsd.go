// Copyright 2016 Aleksandr Demakin. All rights reserved.

package futex

import (
	"os"
	"runtime"
	"time"
	"unsafe"

	"github.com/nxgtw/go-evcount/internal/common"

	"golang.org/x/sys/unix"
)

const (
	cUMTX_OP_WAIT_UINT         = 0xb
	cUMTX_OP_WAIT_UINT_PRIVATE = 0xf
	cUMTX_OP_WAKE              = 0x3
	cUMTX_OP_WAKE_PRIVATE      = 0x10
)

func wait(addr *uint32, value uint32, timeout time.Duration, flags int32) error {
	op := int32(cUMTX_OP_WAIT_UINT)
	if flags&Private != 0 {
		op = cUMTX_OP_WAIT_UINT_PRIVATE
	}
	ts := common.TimeoutToTimeSpec(timeout)
	_, err := sysUmtxOp(unsafe.Pointer(addr), op, value, nil, unsafe.Pointer(ts))
	runtime.KeepAlive(ts)
	return err
}

// Wake wakes not more, than count waiters on addr.
// Returns the number of woken waiters.
func Wake(addr *uint32, count uint32, flags int32) (int, error) {
	op := int32(cUMTX_OP_WAKE)
	if flags&Private != 0 {
		op = cUMTX_OP_WAKE_PRIVATE
	}
	woken, err := sysUmtxOp(unsafe.Pointer(addr), op, count, nil, nil)
	return int(woken), err
}

func sysUmtxOp(addr unsafe.Pointer, mode int32, val uint32, ptr2, ts unsafe.Pointer) (int32, error) {
	r1, _, err := unix.Syscall6(unix.SYS__UMTX_OP,
		uintptr(addr),
		uintptr(mode),
		uintptr(val),
		uintptr(ptr2),
		uintptr(ts),
		0)
	runtime.KeepAlive(addr)
	if err != 0 {
		return 0, os.NewSyscallError("SYS__UMTX_OP", err)
	}
	return int32(r1), nil
}
