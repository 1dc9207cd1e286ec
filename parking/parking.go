// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package parking implements evcount.Ops without any syscalls.
// Goroutines are parked in a table of buckets keyed by the address of a word,
// the same way an emulated futex does it.
// It works on any platform, but can't be used for counters shared between processes.
package parking

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	evcount "github.com/nxgtw/go-evcount"
)

const (
	numBuckets = 256
)

var (
	_ evcount.Ops = (*Lot)(nil)
)

// Default is a process-wide parking lot.
var Default = &Lot{}

// Lot is a parking lot for goroutines waiting on memory words.
// Zero value is ready to use. A Lot must not be copied after first use.
type Lot struct {
	// Clock returns current time. If nil, time.Now is used.
	Clock   func() time.Time
	buckets [numBuckets]bucket
}

type bucket struct {
	mut     sync.Mutex
	waiters []*waiter
}

type waiter struct {
	key uintptr
	ch  chan struct{}
}

// Now returns current time using lot's clock. It never fails.
func (l *Lot) Now() (time.Time, error) {
	return l.now(), nil
}

// Wait32 parks the goroutine, if *addr == expected, until a wake on addr, or the deadline.
func (l *Lot) Wait32(state *evcount.WaitState, addr *uint32, expected uint32, deadline time.Time) {
	l.Park(unsafe.Pointer(addr), func() bool {
		return atomic.LoadUint32(addr) == expected
	}, deadline)
}

// Wait64 parks the goroutine, if *addr == expected, until a wake on addr, or the deadline.
func (l *Lot) Wait64(state *evcount.WaitState, addr *uint64, expected uint64, deadline time.Time) {
	l.Park(unsafe.Pointer(addr), func() bool {
		return atomic.LoadUint64(addr) == expected
	}, deadline)
}

// Wake32 unparks all goroutines waiting on addr.
func (l *Lot) Wake32(addr *uint32) {
	l.Unpark(unsafe.Pointer(addr))
}

// Wake64 unparks all goroutines waiting on addr.
func (l *Lot) Wake64(addr *uint64) {
	l.Unpark(unsafe.Pointer(addr))
}

// Park blocks the goroutine on addr until it is unparked, or the deadline passes.
// valid is called with the bucket locked, and if it returns false, Park returns immediately.
// Zero deadline means no deadline. It returns true, if the goroutine was unparked by Unpark.
func (l *Lot) Park(addr unsafe.Pointer, valid func() bool, deadline time.Time) bool {
	key := uintptr(addr)
	b := l.bucket(key)
	b.mut.Lock()
	if !valid() {
		b.mut.Unlock()
		return false
	}
	w := &waiter{key: key, ch: make(chan struct{})}
	b.waiters = append(b.waiters, w)
	b.mut.Unlock()
	if deadline.IsZero() {
		<-w.ch
		return true
	}
	timer := time.NewTimer(deadline.Sub(l.now()))
	defer timer.Stop()
	select {
	case <-w.ch:
		return true
	case <-timer.C:
	}
	b.mut.Lock()
	removed := b.remove(w)
	b.mut.Unlock()
	// if it wasn't in the list, it has just been unparked.
	return !removed
}

// Unpark wakes all goroutines parked on addr. Returns the number of woken goroutines.
func (l *Lot) Unpark(addr unsafe.Pointer) int {
	key := uintptr(addr)
	b := l.bucket(key)
	b.mut.Lock()
	defer b.mut.Unlock()
	var woken int
	remaining := b.waiters[:0]
	for _, w := range b.waiters {
		if w.key == key {
			close(w.ch)
			woken++
		} else {
			remaining = append(remaining, w)
		}
	}
	for i := len(remaining); i < len(b.waiters); i++ {
		b.waiters[i] = nil
	}
	b.waiters = remaining
	return woken
}

// Parked returns the number of goroutines parked on addr.
func (l *Lot) Parked(addr unsafe.Pointer) int {
	key := uintptr(addr)
	b := l.bucket(key)
	b.mut.Lock()
	defer b.mut.Unlock()
	var result int
	for _, w := range b.waiters {
		if w.key == key {
			result++
		}
	}
	return result
}

func (l *Lot) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

func (l *Lot) bucket(key uintptr) *bucket {
	return &l.buckets[hash(uint64(key))%numBuckets]
}

func (b *bucket) remove(w *waiter) bool {
	for i, other := range b.waiters {
		if other == w {
			last := len(b.waiters) - 1
			b.waiters[i] = b.waiters[last]
			b.waiters[last] = nil
			b.waiters = b.waiters[:last]
			return true
		}
	}
	return false
}

// hash mixes address bits, so that adjacent words go to different buckets.
func hash(addr uint64) uint64 {
	addr = (^addr) + (addr << 21)
	addr = addr ^ (addr >> 24)
	addr = addr + (addr << 3) + (addr << 8)
	addr = addr ^ (addr >> 14)
	addr = addr + (addr << 2) + (addr << 4)
	addr = addr ^ (addr >> 28)
	addr = addr + (addr << 31)
	return addr
}
