// Copyright 2016 Aleksandr Demakin. All rights reserved.

// +build freebsd linux

package futex

import (
	"runtime"
	"testing"
	"time"

	evcount "github.com/nxgtw/go-evcount"
	"github.com/nxgtw/go-evcount/internal/common"

	"github.com/stretchr/testify/assert"
)

func TestFutexWaitMismatch(t *testing.T) {
	a := assert.New(t)
	var word uint32 = 1
	err := Wait(&word, 2, time.Second, Private)
	if runtime.GOOS == "linux" {
		a.True(common.IsWouldBlockErr(err), "unexpected error %v", err)
	} else {
		a.NoError(err)
	}
}

func TestFutexWaitTimeout(t *testing.T) {
	a := assert.New(t)
	var word uint32
	timeout := time.Millisecond * 50
	before := time.Now()
	err := Wait(&word, 0, timeout, Private)
	a.True(time.Since(before) >= timeout)
	if runtime.GOOS == "linux" {
		a.True(common.IsTimeoutErr(err), "unexpected error %v", err)
	}
}

func TestFutexWake(t *testing.T) {
	a := assert.New(t)
	var word uint32
	done := make(chan error, 1)
	go func() {
		done <- Wait(&word, 0, time.Second*5, 0)
	}()
	var woken int
	deadline := time.Now().Add(time.Second * 3)
	for woken == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 5)
		var err error
		woken, err = Wake(&word, WakeAll, 0)
		a.NoError(err)
	}
	a.Equal(1, woken)
	select {
	case err := <-done:
		a.NoError(err)
	case <-time.After(time.Second * 3):
		t.Error("waiter has not been woken")
	}
}

func TestLowHalf(t *testing.T) {
	a := assert.New(t)
	word := uint64(0xAABBCCDD11223344)
	a.Equal(uint32(0x11223344), *lowHalf(&word))
}

func TestOpsDeadlinePassed(t *testing.T) {
	a := assert.New(t)
	ops := &Ops{}
	var word uint32
	before := time.Now()
	ops.Wait32(nil, &word, 0, before.Add(-time.Second))
	a.True(time.Since(before) < time.Second)
	a.NoError(WaitDeadline(&word, 0, before.Add(-time.Second), Private))
	a.NoError(Wait(&word, 0, 0, Private))
	now, err := ops.Now()
	a.NoError(err)
	a.False(now.Before(before))
}

func TestOpsWait32Deadline(t *testing.T) {
	a := assert.New(t)
	ops := &Ops{}
	var word uint32
	timeout := time.Millisecond * 50
	before := time.Now()
	ops.Wait32(nil, &word, 0, before.Add(timeout))
	elapsed := time.Since(before)
	a.True(elapsed >= timeout, "returned after %v", elapsed)
	a.True(elapsed < time.Second, "returned after %v", elapsed)
}

func TestOpsWait32Woken(t *testing.T) {
	a := assert.New(t)
	ops := &Ops{}
	var word uint32
	done := make(chan struct{})
	go func() {
		ops.Wait32(nil, &word, 0, time.Time{})
		close(done)
	}()
	deadline := time.Now().Add(time.Second * 3)
	for {
		time.Sleep(time.Millisecond * 5)
		ops.Wake32(&word)
		select {
		case <-done:
			return
		default:
		}
		if time.Now().After(deadline) {
			a.Fail("waiter has not been woken")
			return
		}
	}
}

func TestEventCount32(t *testing.T) {
	a := assert.New(t)
	mode := &evcount.Mode{Ops: &Ops{}}
	var ec evcount.EventCount32
	ec.Init(10)
	go func() {
		time.Sleep(time.Millisecond * 30)
		ec.Add(mode, 5)
	}()
	result, err := ec.WaitTimeout(mode, 10, time.Second*5)
	a.NoError(err)
	a.Equal(evcount.Changed, result)
	a.Equal(uint32(15), ec.Value())
	result, err = ec.WaitTimeout(mode, 15, time.Millisecond*20)
	a.NoError(err)
	a.Equal(evcount.TimedOut, result)
}

func TestEventCount64HighHalf(t *testing.T) {
	a := assert.New(t)
	mode := &evcount.Mode{Ops: &Ops{}}
	var ec evcount.EventCount64
	ec.Init(7)
	go func() {
		time.Sleep(time.Millisecond * 1200)
		// the low half of the word stays the same.
		ec.Add(mode, 1<<31)
	}()
	before := time.Now()
	result, err := ec.WaitTimeout(mode, 7, time.Second*10)
	a.NoError(err)
	a.Equal(evcount.Changed, result)
	a.True(time.Since(before) < time.Second*5)
	a.Equal(uint64(7+1<<31), ec.Value())
}
