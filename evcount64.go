// Copyright 2016 Aleksandr Demakin. All rights reserved.

package evcount

import (
	"sync/atomic"
	"time"
	"unsafe"
)

const (
	flag64 = uint64(1)
	// Max64 is the maximum value of EventCount64. All arithmetic is performed modulo Max64+1.
	Max64 = uint64(1)<<63 - 1
)

const (
	// EventCount64Size is the size of the counter's memory cell.
	EventCount64Size = int(unsafe.Sizeof(EventCount64{}))
)

// EventCount64 is an event count with a 63-bit value.
// The value is stored in the high 63 bits of the word, the low bit is set,
// when there may be waiters.
// The counter must be 64-bit aligned. On 32-bit platforms place it
// at the beginning of an allocated struct, or in a mapped memory region.
// Zero value is an event count with value 0.
type EventCount64 struct {
	counter uint64
}

// NewEventCount64 returns an event count, which uses the given memory location.
// It doesn't modify the memory, Init must be called, if the cell isn't initialized yet.
//	ptr - a location of an 64-bit aligned uint64 word.
func NewEventCount64(ptr unsafe.Pointer) *EventCount64 {
	return (*EventCount64)(ptr)
}

// Init sets the value and clears the flag. The value is taken modulo Max64+1.
// It must not be called concurrently with other operations.
func (ec *EventCount64) Init(value uint64) {
	atomic.StoreUint64(&ec.counter, value<<1)
}

// Value returns current counter's value.
func (ec *EventCount64) Value() uint64 {
	return atomic.LoadUint64(&ec.counter) >> 1
}

// HasWaiters returns true, if the counter may have waiters.
// It is a hint only.
func (ec *EventCount64) HasWaiters() bool {
	return atomic.LoadUint64(&ec.counter)&flag64 != 0
}

// Addr returns the address of the counter's word.
func (ec *EventCount64) Addr() *uint64 {
	return &ec.counter
}

// Inc increments the counter and returns its previous value.
func (ec *EventCount64) Inc(mode *Mode) uint64 {
	return ec.Add(mode, 1)
}

// Add adds delta to the counter, wakes waiters if needed, and returns the previous value.
func (ec *EventCount64) Add(mode *Mode, delta uint64) uint64 {
	var old uint64
	if mode.SingleProducer {
		old = ec.addSP(delta << 1)
	} else {
		old = ec.addMP(delta << 1)
	}
	if old&flag64 != 0 {
		ec.wake(mode.Ops)
	}
	return old >> 1
}

func (ec *EventCount64) addMP(inc uint64) uint64 {
	return atomic.AddUint64(&ec.counter, inc) - inc
}

// addSP must not write zero increment, as it can't be a pure store.
func (ec *EventCount64) addSP(inc uint64) uint64 {
	if inc == 0 {
		return atomic.LoadUint64(&ec.counter)
	}
	return atomic.AddUint64(&ec.counter, inc) - inc
}

func (ec *EventCount64) wake(ops Ops) {
	for {
		old := atomic.LoadUint64(&ec.counter)
		if old&flag64 == 0 || atomic.CompareAndSwapUint64(&ec.counter, old, old&^flag64) {
			break
		}
	}
	ops.Wake64(&ec.counter)
}

// Wait waits until the value differs from old, or the deadline passes.
// Zero deadline means no deadline. Returns Changed or TimedOut.
func (ec *EventCount64) Wait(mode *Mode, old uint64, deadline time.Time) int {
	if ec.Value() != old {
		return Changed
	}
	return waitSlow(mode, (*waiter64)(ec), old, nil, nil, deadline)
}

// WaitPred is like Wait, but calls pred before each sleep.
// If pred returns non-zero value, WaitPred returns it.
//	data - a value stored in WaitState.Data.
func (ec *EventCount64) WaitPred(mode *Mode, old uint64, pred Predicate, data interface{}, deadline time.Time) int {
	if ec.Value() != old {
		return Changed
	}
	return waitSlow(mode, (*waiter64)(ec), old, pred, data, deadline)
}

// WaitTimeout is like Wait, but takes a relative timeout. Negative timeout means no timeout.
// It returns an error, if it was unable to calculate the deadline.
func (ec *EventCount64) WaitTimeout(mode *Mode, old uint64, timeout time.Duration) (int, error) {
	return ec.WaitPredTimeout(mode, old, nil, nil, timeout)
}

// WaitPredTimeout is like WaitPred, but takes a relative timeout. Negative timeout means no timeout.
func (ec *EventCount64) WaitPredTimeout(mode *Mode, old uint64, pred Predicate, data interface{}, timeout time.Duration) (int, error) {
	if ec.Value() != old {
		return Changed, nil
	}
	deadline, err := Deadline(mode, timeout)
	if err != nil {
		return TimedOut, err
	}
	return waitSlow(mode, (*waiter64)(ec), old, pred, data, deadline), nil
}

// upgrade sets the flag bit, if the counter still holds old value.
// returns false, if the value has changed.
func (ec *EventCount64) upgrade(old uint64) bool {
	unflagged := old << 1
	flagged := unflagged | flag64
	for {
		current := atomic.LoadUint64(&ec.counter)
		if current == flagged {
			return true
		}
		if current != unflagged {
			return false
		}
		if atomic.CompareAndSwapUint64(&ec.counter, unflagged, flagged) {
			return true
		}
	}
}

type waiter64 EventCount64

func (w *waiter64) changed(old uint64) bool {
	return (*EventCount64)(w).Value() != old
}

func (w *waiter64) sleep(state *WaitState, old uint64, deadline time.Time) bool {
	ec := (*EventCount64)(w)
	if !ec.upgrade(old) {
		return true
	}
	state.Ops.Wait64(state, &ec.counter, old<<1|flag64, deadline)
	return ec.Value() != old
}
