// Copyright 2016 Aleksandr Demakin. All rights reserved.

package evcount

import "time"

// waitable is implemented by both counter flavors.
// old values are always passed unflagged.
type waitable interface {
	changed(old uint64) bool
	// sleep sets the flag bit and blocks on the counter until the deadline.
	// returns true, if the value differs from old.
	sleep(state *WaitState, old uint64, deadline time.Time) bool
}

// waitSlow is called after the fast path check has failed.
// The spin phase only re-reads the counter, predicates are called by backoff.
func waitSlow(mode *Mode, w waitable, old uint64, pred Predicate, data interface{}, deadline time.Time) int {
	for i := mode.busyLoopIter(); i > 0; i-- {
		if w.changed(old) {
			return Changed
		}
	}
	return backoff(mode, w, old, pred, data, deadline)
}

func backoff(mode *Mode, w waitable, old uint64, pred Predicate, data interface{}, deadline time.Time) int {
	ops := mode.Ops
	scale, shift := mode.waitScaleFactor(), mode.waitShiftCount()
	waitNs := mode.initialWait()
	state := WaitState{Ops: ops, Data: data}
	var stopBackoff time.Time
	for first := true; ; first = false {
		now, err := ops.Now()
		if err != nil || expired(now, deadline) {
			return TimedOut
		}
		if first {
			state.Start = now
			stopBackoff = now.Add(backoffPeriod)
		}
		state.Now = now
		var partial time.Time
		if now.Before(stopBackoff) {
			for {
				partial = state.Start.Add(time.Duration(waitNs))
				waitNs = scaleWait(waitNs, scale, shift)
				if partial.After(now) {
					break
				}
			}
			partial = earliest(partial, deadline)
		} else {
			// the flag we set while backing off can't be lost now,
			// so we can rely on the producer's wake.
			partial = deadline
		}
		if pred != nil {
			bound := partial
			if result := pred(&state, &partial); result != 0 {
				return result
			}
			// zero time written by the predicate means 'no change'.
			partial = earliest(partial, bound)
		}
		if w.sleep(&state, old, partial) {
			return Changed
		}
	}
}
