// Copyright 2016 Aleksandr Demakin. All rights reserved.

package evcount

import (
	"sync/atomic"
	"time"
	"unsafe"
)

const (
	flag32 = uint32(1) << 31
	// Max32 is the maximum value of EventCount32. All arithmetic is performed modulo Max32+1.
	Max32 = flag32 - 1
)

const (
	// EventCount32Size is the size of the counter's memory cell.
	EventCount32Size = int(unsafe.Sizeof(EventCount32{}))
)

// EventCount32 is an event count with a 31-bit value.
// The high bit of the word is set, when there may be waiters.
// Zero value is an event count with value 0.
type EventCount32 struct {
	counter uint32
}

// NewEventCount32 returns an event count, which uses the given memory location.
// It doesn't modify the memory, Init must be called, if the cell isn't initialized yet.
//	ptr - a location of an uint32 word.
func NewEventCount32(ptr unsafe.Pointer) *EventCount32 {
	return (*EventCount32)(ptr)
}

// Init sets the value and clears the flag. The value is taken modulo Max32+1.
// It must not be called concurrently with other operations.
func (ec *EventCount32) Init(value uint32) {
	atomic.StoreUint32(&ec.counter, value&Max32)
}

// Value returns current counter's value.
func (ec *EventCount32) Value() uint32 {
	return atomic.LoadUint32(&ec.counter) & Max32
}

// HasWaiters returns true, if the counter may have waiters.
// It is a hint only.
func (ec *EventCount32) HasWaiters() bool {
	return atomic.LoadUint32(&ec.counter)&flag32 != 0
}

// Addr returns the address of the counter's word.
func (ec *EventCount32) Addr() *uint32 {
	return &ec.counter
}

// Inc increments the counter and returns its previous value.
func (ec *EventCount32) Inc(mode *Mode) uint32 {
	return ec.Add(mode, 1)
}

// Add adds delta to the counter, wakes waiters if needed, and returns the previous value.
func (ec *EventCount32) Add(mode *Mode, delta uint32) uint32 {
	var old uint32
	delta &= Max32
	if mode.SingleProducer {
		old = ec.addSP(delta)
	} else {
		old = ec.addMP(delta)
	}
	if old&flag32 != 0 {
		ec.wake(mode.Ops)
	}
	return old & Max32
}

func (ec *EventCount32) addMP(delta uint32) uint32 {
	return atomic.AddUint32(&ec.counter, delta) - delta
}

// addSP must not write zero delta, as it can't be a pure store.
func (ec *EventCount32) addSP(delta uint32) uint32 {
	if delta == 0 {
		return atomic.LoadUint32(&ec.counter)
	}
	return atomic.AddUint32(&ec.counter, delta) - delta
}

func (ec *EventCount32) wake(ops Ops) {
	for {
		old := atomic.LoadUint32(&ec.counter)
		if old&flag32 == 0 || atomic.CompareAndSwapUint32(&ec.counter, old, old&^flag32) {
			break
		}
	}
	ops.Wake32(&ec.counter)
}

// Wait waits until the value differs from old, or the deadline passes.
// Zero deadline means no deadline. Returns Changed or TimedOut.
func (ec *EventCount32) Wait(mode *Mode, old uint32, deadline time.Time) int {
	if ec.Value() != old {
		return Changed
	}
	return waitSlow(mode, (*waiter32)(ec), uint64(old), nil, nil, deadline)
}

// WaitPred is like Wait, but calls pred before each sleep.
// If pred returns non-zero value, WaitPred returns it.
//	data - a value stored in WaitState.Data.
func (ec *EventCount32) WaitPred(mode *Mode, old uint32, pred Predicate, data interface{}, deadline time.Time) int {
	if ec.Value() != old {
		return Changed
	}
	return waitSlow(mode, (*waiter32)(ec), uint64(old), pred, data, deadline)
}

// WaitTimeout is like Wait, but takes a relative timeout. Negative timeout means no timeout.
// It returns an error, if it was unable to calculate the deadline.
func (ec *EventCount32) WaitTimeout(mode *Mode, old uint32, timeout time.Duration) (int, error) {
	return ec.WaitPredTimeout(mode, old, nil, nil, timeout)
}

// WaitPredTimeout is like WaitPred, but takes a relative timeout. Negative timeout means no timeout.
func (ec *EventCount32) WaitPredTimeout(mode *Mode, old uint32, pred Predicate, data interface{}, timeout time.Duration) (int, error) {
	if ec.Value() != old {
		return Changed, nil
	}
	deadline, err := Deadline(mode, timeout)
	if err != nil {
		return TimedOut, err
	}
	return waitSlow(mode, (*waiter32)(ec), uint64(old), pred, data, deadline), nil
}

// upgrade sets the flag bit, if the counter still holds unflagged value.
// returns false, if the value has changed.
func (ec *EventCount32) upgrade(unflagged uint32) bool {
	flagged := unflagged | flag32
	for {
		current := atomic.LoadUint32(&ec.counter)
		if current == flagged {
			return true
		}
		if current != unflagged {
			return false
		}
		if atomic.CompareAndSwapUint32(&ec.counter, unflagged, flagged) {
			return true
		}
	}
}

type waiter32 EventCount32

func (w *waiter32) changed(old uint64) bool {
	return (*EventCount32)(w).Value() != uint32(old)
}

func (w *waiter32) sleep(state *WaitState, old uint64, deadline time.Time) bool {
	ec := (*EventCount32)(w)
	unflagged := uint32(old)
	if !ec.upgrade(unflagged) {
		return true
	}
	state.Ops.Wait32(state, &ec.counter, unflagged|flag32, deadline)
	return ec.Value() != unflagged
}
