// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package evcount provides event counts: counters, which can be waited on.
// A producer updates the counter without taking any locks, and any number
// of consumers may block until the counter's value changes.
//
// There are two flavors of counters:
//	EventCount32 - 31-bit value, flag bit in the high bit of an uint32 word.
//	EventCount64 - 63-bit value, flag bit in the low bit of an uint64 word.
// Counters do not own their memory: they can be embedded into other structures,
// or placed in shared memory (see 'shm' subpackage).
//
// The counter never sleeps by itself. All blocking is delegated to an
// implementation of Ops, which is passed to every operation inside a Mode.
// Two implementations are provided:
//	futex   - linux futex / freebsd umtx, can be used for counters in shared memory.
//	parking - a portable in-process parking lot.
//
// The waiting protocol is:
//	- check the value, return if it has changed. no syscalls are made.
//	- spin for a while.
//	- set the flag bit, and sleep, increasing sleep intervals exponentially.
//	- after a second of backoff, sleep until the deadline.
package evcount
