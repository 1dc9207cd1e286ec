// Copyright 2016 Aleksandr Demakin. All rights reserved.

// +build freebsd linux

// Package futex implements evcount.Ops using linux futexes or freebsd umtx.
// It can be used for counters placed in shared memory.
package futex

import (
	"math"
	"time"
	"unsafe"

	evcount "github.com/nxgtw/go-evcount"
	"github.com/nxgtw/go-evcount/internal/allocator"
	"github.com/nxgtw/go-evcount/internal/common"
)

const (
	// Private is a flag for Wait and Wake. It means, that the word is not shared
	// between processes, which allows the kernel to do less work.
	Private int32 = 1

	// WakeAll can be passed to Wake to wake all waiters.
	WakeAll = math.MaxInt32
)

var (
	_ evcount.Ops = (*Ops)(nil)
)

// offset of the half of an uint64 word, which holds low 32 bits.
var lowHalfOffset uintptr

func init() {
	probe := uint64(1)
	if *(*uint32)(unsafe.Pointer(&probe)) != 1 {
		lowHalfOffset = 4
	}
}

// Ops implements evcount.Ops with futex syscalls.
// Zero value is for process-private counters.
type Ops struct {
	// Shared must be set for counters in memory shared between processes.
	Shared bool
}

// Now returns current time.
func (o *Ops) Now() (time.Time, error) {
	return time.Now(), nil
}

// Wait32 sleeps on addr. Syscall errors are ignored, as the caller rechecks the counter anyway.
func (o *Ops) Wait32(state *evcount.WaitState, addr *uint32, expected uint32, deadline time.Time) {
	WaitDeadline(addr, expected, deadline, o.flags())
}

// Wait64 sleeps on the low half of the word, where the flag bit is.
// A change of the high half is noticed either by the producer's wake,
// or by the caller when the sleep ends.
func (o *Ops) Wait64(state *evcount.WaitState, addr *uint64, expected uint64, deadline time.Time) {
	o.Wait32(state, lowHalf(addr), uint32(expected), deadline)
}

// Wake32 wakes all waiters on addr.
func (o *Ops) Wake32(addr *uint32) {
	Wake(addr, WakeAll, o.flags())
}

// Wake64 wakes all waiters on addr.
func (o *Ops) Wake64(addr *uint64) {
	Wake(lowHalf(addr), WakeAll, o.flags())
}

func (o *Ops) flags() int32 {
	if o.Shared {
		return 0
	}
	return Private
}

// Wait checks if *addr equals value, and if so, sleeps until a Wake call
// on addr, or for not longer, than timeout. Negative timeout means no timeout.
// Interrupted waits are restarted with the remaining time.
// On linux it returns EWOULDBLOCK, if the values differ, and ETIMEDOUT, if the timeout has passed.
// On freebsd it returns nil, if the values differ.
func Wait(addr *uint32, value uint32, timeout time.Duration, flags int32) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	return WaitDeadline(addr, value, deadline, flags)
}

// WaitDeadline is like Wait, but takes an absolute deadline. Zero deadline means no deadline.
// If the deadline has already passed, it returns nil without making a syscall.
func WaitDeadline(addr *uint32, value uint32, deadline time.Time, flags int32) error {
	return common.UninterruptedSyscall(func() error {
		timeout := common.DeadlineToTimeout(deadline)
		if timeout == 0 {
			return nil
		}
		return wait(addr, value, timeout, flags)
	})
}

func lowHalf(addr *uint64) *uint32 {
	return (*uint32)(allocator.AdvancePointer(unsafe.Pointer(addr), lowHalfOffset))
}
