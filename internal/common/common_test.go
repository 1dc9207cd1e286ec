// Copyright 2016 Aleksandr Demakin. All rights reserved.

package common

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSyscallErrHasCode(t *testing.T) {
	a := assert.New(t)
	a.True(SyscallErrHasCode(os.NewSyscallError("FUTEX", syscall.EAGAIN), syscall.EAGAIN))
	a.False(SyscallErrHasCode(os.NewSyscallError("FUTEX", syscall.EINTR), syscall.EAGAIN))
	a.False(SyscallErrHasCode(syscall.EAGAIN, syscall.EAGAIN))
	a.False(SyscallErrHasCode(errors.New("EAGAIN"), syscall.EAGAIN))
	a.False(SyscallErrHasCode(nil, syscall.EAGAIN))
}

func TestDeadlineToTimeout(t *testing.T) {
	a := assert.New(t)
	a.Equal(time.Duration(-1), DeadlineToTimeout(time.Time{}))
	a.Equal(time.Duration(0), DeadlineToTimeout(time.Now().Add(-time.Second)))
	timeout := DeadlineToTimeout(time.Now().Add(time.Hour))
	a.True(timeout > time.Minute*59 && timeout <= time.Hour)
}
