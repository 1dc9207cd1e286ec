// Copyright 2016 Aleksandr Demakin. All rights reserved.

package evcount

import (
	"sync"
	"sync/atomic"
	"time"
)

// mockOps counts calls and implements blocking with a broadcast channel.
// If fake is set, it uses a fake clock, and waits advance it to their deadlines.
type mockOps struct {
	nowCalls   int32
	waitCalls  int32
	wakeCalls  int32
	clockErr   error
	fake       bool
	mut        sync.Mutex
	fakeNow    time.Time
	ch         chan struct{}
	deadlines  []time.Duration
	lastStates []WaitState
}

func newMockOps() *mockOps {
	return &mockOps{}
}

func newFakeClockOps() *mockOps {
	return &mockOps{fake: true, fakeNow: time.Unix(1000, 0)}
}

func (o *mockOps) Now() (time.Time, error) {
	atomic.AddInt32(&o.nowCalls, 1)
	if o.clockErr != nil {
		return time.Time{}, o.clockErr
	}
	if o.fake {
		o.mut.Lock()
		defer o.mut.Unlock()
		return o.fakeNow, nil
	}
	return time.Now(), nil
}

func (o *mockOps) Wait32(state *WaitState, addr *uint32, expected uint32, deadline time.Time) {
	o.wait(state, func() bool { return atomic.LoadUint32(addr) == expected }, deadline)
}

func (o *mockOps) Wait64(state *WaitState, addr *uint64, expected uint64, deadline time.Time) {
	o.wait(state, func() bool { return atomic.LoadUint64(addr) == expected }, deadline)
}

func (o *mockOps) Wake32(addr *uint32) {
	o.wake()
}

func (o *mockOps) Wake64(addr *uint64) {
	o.wake()
}

func (o *mockOps) waits() int {
	return int(atomic.LoadInt32(&o.waitCalls))
}

func (o *mockOps) wakes() int {
	return int(atomic.LoadInt32(&o.wakeCalls))
}

func (o *mockOps) nows() int {
	return int(atomic.LoadInt32(&o.nowCalls))
}

func (o *mockOps) recordedDeadlines() []time.Duration {
	o.mut.Lock()
	defer o.mut.Unlock()
	return append([]time.Duration(nil), o.deadlines...)
}

func (o *mockOps) states() []WaitState {
	o.mut.Lock()
	defer o.mut.Unlock()
	return append([]WaitState(nil), o.lastStates...)
}

func (o *mockOps) wait(state *WaitState, valid func() bool, deadline time.Time) {
	atomic.AddInt32(&o.waitCalls, 1)
	o.mut.Lock()
	o.lastStates = append(o.lastStates, *state)
	if !deadline.IsZero() {
		o.deadlines = append(o.deadlines, deadline.Sub(state.Start))
	}
	if o.fake {
		if deadline.IsZero() {
			o.fakeNow = o.fakeNow.Add(time.Hour)
		} else if deadline.After(o.fakeNow) {
			o.fakeNow = deadline
		}
		o.mut.Unlock()
		return
	}
	if !valid() {
		o.mut.Unlock()
		return
	}
	if o.ch == nil {
		o.ch = make(chan struct{})
	}
	ch := o.ch
	o.mut.Unlock()
	if deadline.IsZero() {
		<-ch
		return
	}
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
	}
}

func (o *mockOps) wake() {
	atomic.AddInt32(&o.wakeCalls, 1)
	o.mut.Lock()
	defer o.mut.Unlock()
	if o.ch != nil {
		close(o.ch)
		o.ch = nil
	}
}
