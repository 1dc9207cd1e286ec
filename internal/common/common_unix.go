// Copyright 2016 Aleksandr Demakin. All rights reserved.

// +build darwin freebsd linux

package common

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// TimeoutToTimeSpec converts a relative timeout into a timespec.
// It returns nil for negative timeouts.
func TimeoutToTimeSpec(timeout time.Duration) *unix.Timespec {
	if timeout >= 0 {
		ts := unix.NsecToTimespec(timeout.Nanoseconds())
		return &ts
	}
	return nil
}

// IsInterruptedSyscallErr returns true, if err is EINTR.
func IsInterruptedSyscallErr(err error) bool {
	return SyscallErrHasCode(err, syscall.EINTR)
}

// IsTimeoutErr returns true, if err is ETIMEDOUT.
func IsTimeoutErr(err error) bool {
	return SyscallErrHasCode(err, syscall.ETIMEDOUT)
}

// IsWouldBlockErr returns true, if err is EAGAIN (EWOULDBLOCK).
func IsWouldBlockErr(err error) bool {
	return SyscallErrHasCode(err, syscall.EAGAIN)
}

// UninterruptedSyscall calls f until it returns an error other than EINTR.
func UninterruptedSyscall(f func() error) error {
	for {
		err := f()
		if !IsInterruptedSyscallErr(err) {
			return err
		}
	}
}
