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
	cFUTEX_WAIT         = 0
	cFUTEX_WAKE         = 1
	cFUTEX_PRIVATE_FLAG = 128
)

func wait(addr *uint32, value uint32, timeout time.Duration, flags int32) error {
	ts := common.TimeoutToTimeSpec(timeout)
	_, err := futex(unsafe.Pointer(addr), cFUTEX_WAIT|osFlags(flags), value, unsafe.Pointer(ts))
	runtime.KeepAlive(ts)
	return err
}

// Wake wakes not more, than count waiters on addr.
// Returns the number of woken waiters.
func Wake(addr *uint32, count uint32, flags int32) (int, error) {
	woken, err := futex(unsafe.Pointer(addr), cFUTEX_WAKE|osFlags(flags), count, nil)
	return int(woken), err
}

func osFlags(flags int32) int32 {
	if flags&Private != 0 {
		return cFUTEX_PRIVATE_FLAG
	}
	return 0
}

func futex(addr unsafe.Pointer, op int32, val uint32, ts unsafe.Pointer) (int32, error) {
	r1, _, err := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(addr),
		uintptr(op),
		uintptr(val),
		uintptr(ts),
		0,
		0)
	runtime.KeepAlive(addr)
	if err != 0 {
		return 0, os.NewSyscallError("FUTEX", err)
	}
	return int32(r1), nil
}
