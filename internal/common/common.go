// Copyright 2016 Aleksandr Demakin. All rights reserved.

package common

import (
	"os"
	"syscall"
	"time"
)

// SyscallErrHasCode returns true, if err is an *os.SyscallError with the given errno.
func SyscallErrHasCode(err error, code syscall.Errno) bool {
	if sysErr, ok := err.(*os.SyscallError); ok {
		if errno, ok := sysErr.Err.(syscall.Errno); ok {
			return errno == code
		}
	}
	return false
}

// DeadlineToTimeout converts an absolute deadline into a relative timeout.
// Zero deadline is converted into -1, which means 'no timeout'.
// Deadlines in the past are converted into 0.
func DeadlineToTimeout(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return -1
	}
	timeout := time.Until(deadline)
	if timeout < 0 {
		timeout = 0
	}
	return timeout
}
