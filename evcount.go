// Copyright 2016 Aleksandr Demakin. All rights reserved.

package evcount

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Results of wait operations. Predicates may return any other non-zero value,
// which will be returned as is.
const (
	// Changed means, that the counter's value differs from the expected one.
	Changed = 0
	// TimedOut means, that the deadline has passed, and the value has not changed.
	TimedOut = -1
)

const (
	defaultBusyLoopIter    = 100
	defaultInitialWait     = 2 * time.Millisecond
	defaultWaitScaleFactor = 8
	defaultWaitShiftCount  = 1

	// after this period of exponential backoff a waiter sleeps until its deadline.
	backoffPeriod  = time.Second
	maxBackoffWait = uint64(16 * backoffPeriod)
)

// Ops is a set of OS primitives used by event counts.
type Ops interface {
	// Now returns current time.
	Now() (time.Time, error)
	// Wait32 blocks while *addr == expected and the deadline has not passed.
	// Zero deadline means no deadline. It can return earlier for any reason.
	Wait32(state *WaitState, addr *uint32, expected uint32, deadline time.Time)
	// Wait64 is the same as Wait32 for 64-bit words.
	Wait64(state *WaitState, addr *uint64, expected uint64, deadline time.Time)
	// Wake32 wakes all goroutines blocked in Wait32 on addr.
	Wake32(addr *uint32)
	// Wake64 wakes all goroutines blocked in Wait64 on addr.
	Wake64(addr *uint64)
}

// Mode describes how event count operations are performed.
// It must not be changed after it was passed to any operation.
// Zero values of tuning fields mean defaults.
type Mode struct {
	// Ops is used for sleeping, waking and reading time. Must not be nil.
	Ops Ops
	// BusyLoopIter is a number of counter checks, before a waiter starts sleeping.
	// Default is 100.
	BusyLoopIter int
	// InitialWait is the first backoff interval. Default is 2ms.
	InitialWait time.Duration
	// WaitScaleFactor and WaitShiftCount define interval growth:
	// wait = (wait * WaitScaleFactor) >> WaitShiftCount. Defaults are 8 and 1.
	WaitScaleFactor uint32
	WaitShiftCount  uint32
	// SingleProducer must be set only if there is at most one goroutine,
	// which updates counters using this mode.
	SingleProducer bool
}

func (m *Mode) busyLoopIter() int {
	if m.BusyLoopIter > 0 {
		return m.BusyLoopIter
	}
	return defaultBusyLoopIter
}

func (m *Mode) initialWait() uint64 {
	if m.InitialWait > 0 {
		return uint64(m.InitialWait)
	}
	return uint64(defaultInitialWait)
}

func (m *Mode) waitScaleFactor() uint64 {
	if m.WaitScaleFactor != 0 {
		return uint64(m.WaitScaleFactor)
	}
	return defaultWaitScaleFactor
}

func (m *Mode) waitShiftCount() uint32 {
	if m.WaitShiftCount != 0 {
		return m.WaitShiftCount
	}
	return defaultWaitShiftCount
}

// WaitState is passed to Ops.Wait* and to predicates.
type WaitState struct {
	// Start is the time at which the waiter started sleeping.
	Start time.Time
	// Now is the time of the last clock read.
	Now time.Time
	// Ops is the mode's ops.
	Ops Ops
	// Data is the value passed to WaitPred.
	Data interface{}
}

// Predicate is called by WaitPred before each sleep.
// It is not called while the waiter spins, so the first call happens
// right after the spin phase, before the first sleep.
// If it returns non-zero value, the wait is interrupted, and the value is returned to the caller.
// It may move the iteration's deadline to an earlier moment, but not to a later one.
// A zero deadline written by the predicate leaves the iteration's deadline unchanged.
type Predicate func(state *WaitState, deadline *time.Time) int

// Deadline returns an absolute deadline for the given timeout.
// Negative timeout means no timeout, and zero time is returned.
func Deadline(mode *Mode, timeout time.Duration) (time.Time, error) {
	if timeout < 0 {
		return time.Time{}, nil
	}
	now, err := mode.Ops.Now()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "failed to read clock")
	}
	return now.Add(timeout), nil
}

func expired(now, deadline time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}

// earliest returns the earliest of two deadlines. zero time is treated as infinity.
func earliest(a, b time.Time) time.Time {
	if a.IsZero() || (!b.IsZero() && b.Before(a)) {
		return b
	}
	return a
}

func scaleWait(wait, scale uint64, shift uint32) uint64 {
	var next uint64
	if wait > math.MaxUint64/scale {
		next = math.MaxUint64 >> shift
	} else {
		next = (wait * scale) >> shift
	}
	if next <= wait {
		next = wait + 1
	}
	if next > maxBackoffWait {
		next = maxBackoffWait
	}
	return next
}
