// Copyright 2016 Aleksandr Demakin. All rights reserved.

// +build darwin freebsd linux

package common

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutToTimeSpec(t *testing.T) {
	a := assert.New(t)
	a.Nil(TimeoutToTimeSpec(-1))
	ts := TimeoutToTimeSpec(time.Second*3 + time.Millisecond)
	if a.NotNil(ts) {
		a.Equal(int64(3), int64(ts.Sec))
		a.Equal(int64(time.Millisecond), int64(ts.Nsec))
	}
	ts = TimeoutToTimeSpec(0)
	if a.NotNil(ts) {
		a.Equal(int64(0), int64(ts.Sec))
		a.Equal(int64(0), int64(ts.Nsec))
	}
}

func TestUninterruptedSyscall(t *testing.T) {
	a := assert.New(t)
	var calls int
	err := UninterruptedSyscall(func() error {
		calls++
		if calls < 3 {
			return os.NewSyscallError("FUTEX", syscall.EINTR)
		}
		return os.NewSyscallError("FUTEX", syscall.ETIMEDOUT)
	})
	a.Equal(3, calls)
	a.True(IsTimeoutErr(err))
	a.False(IsWouldBlockErr(err))
	a.False(IsInterruptedSyscallErr(err))
}
