// Copyright 2016 Aleksandr Demakin. All rights reserved.

// +build freebsd linux

// Package shm places event counts into named shared memory objects,
// so that they can be used by several processes.
// Counters must be used with a mode, whose ops are able to wake
// waiters in other processes, for instance, the one returned by NewMode.
package shm

import (
	"os"
	"unsafe"

	evcount "github.com/nxgtw/go-evcount"
	"github.com/nxgtw/go-evcount/futex"
	"github.com/nxgtw/go-evcount/internal/allocator"

	"github.com/pkg/errors"
)

var sharedOps = &futex.Ops{Shared: true}

// NewMode returns a mode for counters shared between processes.
func NewMode(singleProducer bool) *evcount.Mode {
	return &evcount.Mode{Ops: sharedOps, SingleProducer: singleProducer}
}

// EventCount32 is an evcount.EventCount32 placed into a shared memory object.
type EventCount32 struct {
	*evcount.EventCount32
	region *Region
	name   string
}

// NewEventCount32 creates or opens a named shared event count.
//	name - object name.
//	flag - flag is a combination of open flags from 'os' package.
//	perm - object's permission bits.
//	initial - initial value. it is set only if the object was created.
func NewEventCount32(name string, flag int, perm os.FileMode, initial uint32) (*EventCount32, error) {
	ptr, region, created, err := placeCounter(eventCount32Name(name), flag, perm, evcount.EventCount32Size)
	if err != nil {
		return nil, err
	}
	result := &EventCount32{
		EventCount32: evcount.NewEventCount32(ptr),
		region:       region,
		name:         name,
	}
	if created {
		result.Init(initial)
	}
	return result, nil
}

// Close unmaps the counter. The counter must not be used after it,
// the embedded event count is set to nil.
func (ec *EventCount32) Close() error {
	ec.EventCount32 = nil
	return ec.region.Close()
}

// Destroy closes the counter and removes its shared memory object.
func (ec *EventCount32) Destroy() error {
	if err := ec.Close(); err != nil {
		return errors.Wrap(err, "failed to close shm region")
	}
	return DestroyEventCount32(ec.name)
}

// DestroyEventCount32 permanently removes an event count with the given name.
func DestroyEventCount32(name string) error {
	if err := DestroyMemoryObject(eventCount32Name(name)); err != nil {
		return errors.Wrap(err, "failed to destroy memory object")
	}
	return nil
}

// EventCount64 is an evcount.EventCount64 placed into a shared memory object.
type EventCount64 struct {
	*evcount.EventCount64
	region *Region
	name   string
}

// NewEventCount64 creates or opens a named shared event count.
//	name - object name.
//	flag - flag is a combination of open flags from 'os' package.
//	perm - object's permission bits.
//	initial - initial value. it is set only if the object was created.
func NewEventCount64(name string, flag int, perm os.FileMode, initial uint64) (*EventCount64, error) {
	ptr, region, created, err := placeCounter(eventCount64Name(name), flag, perm, evcount.EventCount64Size)
	if err != nil {
		return nil, err
	}
	result := &EventCount64{
		EventCount64: evcount.NewEventCount64(ptr),
		region:       region,
		name:         name,
	}
	if created {
		result.Init(initial)
	}
	return result, nil
}

// Close unmaps the counter. The counter must not be used after it,
// the embedded event count is set to nil.
func (ec *EventCount64) Close() error {
	ec.EventCount64 = nil
	return ec.region.Close()
}

// Destroy closes the counter and removes its shared memory object.
func (ec *EventCount64) Destroy() error {
	if err := ec.Close(); err != nil {
		return errors.Wrap(err, "failed to close shm region")
	}
	return DestroyEventCount64(ec.name)
}

// DestroyEventCount64 permanently removes an event count with the given name.
func DestroyEventCount64(name string) error {
	if err := DestroyMemoryObject(eventCount64Name(name)); err != nil {
		return errors.Wrap(err, "failed to destroy memory object")
	}
	return nil
}

func placeCounter(name string, flag int, perm os.FileMode, size int) (unsafe.Pointer, *Region, bool, error) {
	region, created, err := createWritableRegion(name, flag, perm, size)
	if err != nil {
		return nil, nil, false, errors.Wrap(err, "failed to create shared state")
	}
	ptr, err := allocator.Place(region.Data(), 0, size, uintptr(size))
	if err != nil {
		region.Close()
		if created {
			DestroyMemoryObject(name)
		}
		return nil, nil, false, errors.Wrap(err, "failed to place the counter")
	}
	return ptr, region, created, nil
}

func eventCount32Name(name string) string {
	return "go-evcount." + name + ".ec32"
}

func eventCount64Name(name string) string {
	return "go-evcount." + name + ".ec64"
}
