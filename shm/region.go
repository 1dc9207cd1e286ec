// Copyright 2015 Aleksandr Demakin. All rights reserved.

// +build freebsd linux

package shm

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Region is a read-write shared mapping of a memory object.
type Region struct {
	data []byte
}

// NewRegion maps size bytes of the object starting from offset 0.
func NewRegion(obj *MemoryObject, size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid mapping size %d", size)
	}
	if actual := obj.Size(); int64(size) > actual {
		return nil, errors.Errorf("invalid mapping length %d for object of size %d", size, actual)
	}
	data, err := unix.Mmap(int(obj.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "mmap failed")
	}
	return &Region{data: data}, nil
}

// Data returns mapped memory. It must not be used after Close.
func (r *Region) Data() []byte {
	return r.data
}

// Size returns the size of the mapping.
func (r *Region) Size() int {
	return len(r.data)
}

// Close unmaps the region.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return errors.Wrap(err, "munmap failed")
}

// createWritableRegion creates or opens a memory object of the given size and maps it.
// The object itself is closed, as the mapping keeps it alive.
func createWritableRegion(name string, flag int, perm os.FileMode, size int) (*Region, bool, error) {
	obj, created, resultErr := NewMemoryObjectSize(name, flag, perm, int64(size))
	if resultErr != nil {
		return nil, false, errors.Wrap(resultErr, "failed to create shm object")
	}
	var region *Region
	defer func() {
		obj.Close()
		if resultErr != nil && created {
			obj.Destroy()
		}
	}()
	if region, resultErr = NewRegion(obj, size); resultErr != nil {
		return nil, false, errors.Wrap(resultErr, "failed to create shm region")
	}
	return region, created, nil
}
