// Copyright 2015 Aleksandr Demakin. All rights reserved.

// +build freebsd linux

package shm

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	maxNameLen = 255
)

// MemoryObject is a named shared memory object.
type MemoryObject struct {
	file *os.File
}

// NewMemoryObject opens or creates a shared memory object.
//	name - object name. should not contain '/' and exceed 255 symbols.
//	flag - flag is a combination of open flags from 'os' package (O_CREATE, O_EXCL).
//	perm - object's permission bits.
// It returns true, if the object was created.
func NewMemoryObject(name string, flag int, perm os.FileMode) (*MemoryObject, bool, error) {
	if err := ensureOpenFlags(flag); err != nil {
		return nil, false, err
	}
	path, err := shmName(name)
	if err != nil {
		return nil, false, err
	}
	opener := func(osFlag int) (*os.File, error) {
		return os.OpenFile(path, osFlag|os.O_RDWR, perm)
	}
	file, created, err := openOrCreate(opener, flag)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to open shm file")
	}
	return &MemoryObject{file: file}, created, nil
}

// NewMemoryObjectSize opens or creates a shared memory object with the given size.
// If the object was created, it is truncated to size bytes. If it was opened,
// its size must not be less than size.
func NewMemoryObjectSize(name string, flag int, perm os.FileMode, size int64) (*MemoryObject, bool, error) {
	obj, created, err := NewMemoryObject(name, flag, perm)
	if err != nil {
		return nil, false, err
	}
	if created {
		err = obj.Truncate(size)
	} else if actual := obj.Size(); actual < size {
		err = errors.Errorf("existing object has invalid size %d", actual)
	}
	if err != nil {
		obj.Close()
		if created {
			obj.Destroy()
		}
		return nil, false, err
	}
	return obj, created, nil
}

// Name returns the name of the object's file.
func (obj *MemoryObject) Name() string {
	return obj.file.Name()
}

// Size returns the size of the object.
func (obj *MemoryObject) Size() int64 {
	fileInfo, err := obj.file.Stat()
	if err != nil {
		return 0
	}
	return fileInfo.Size()
}

// Truncate changes the size of the object.
func (obj *MemoryObject) Truncate(size int64) error {
	return errors.Wrap(obj.file.Truncate(size), "failed to truncate shm file")
}

// Fd returns object's file descriptor.
func (obj *MemoryObject) Fd() uintptr {
	return obj.file.Fd()
}

// Close closes object's descriptor. The object and its mapped regions remain valid.
func (obj *MemoryObject) Close() error {
	return obj.file.Close()
}

// Destroy closes the object and removes it.
func (obj *MemoryObject) Destroy() error {
	obj.file.Close()
	return doDestroy(obj.file.Name())
}

// DestroyMemoryObject removes a memory object with the given name.
// It doesn't return an error, if the object doesn't exist.
func DestroyMemoryObject(name string) error {
	path, err := shmName(name)
	if err != nil {
		return err
	}
	return doDestroy(path)
}

func doDestroy(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "failed to remove shm file")
}

func shmName(name string) (string, error) {
	name = strings.TrimLeft(name, "/")
	nameLen := len(name)
	if nameLen == 0 || nameLen >= maxNameLen || strings.Contains(name, "/") {
		return "", errors.New("invalid shm name")
	}
	dir, err := shmDirectory()
	if err != nil {
		return "", errors.Wrap(err, "error building shared memory name")
	}
	return dir + name, nil
}

func ensureOpenFlags(flag int) error {
	if flag & ^(os.O_CREATE|os.O_EXCL) != 0 {
		return errors.New("only O_CREATE and O_EXCL flags are allowed")
	}
	return nil
}

func openOrCreate(opener func(int) (*os.File, error), flag int) (*os.File, bool, error) {
	switch {
	case flag&os.O_CREATE == 0:
		file, err := opener(0)
		return file, false, err
	case flag&os.O_EXCL != 0:
		file, err := opener(os.O_CREATE | os.O_EXCL)
		return file, err == nil, err
	default:
		const attempts = 16
		var err error
		for attempt := 0; attempt < attempts; attempt++ {
			var file *os.File
			if file, err = opener(os.O_CREATE | os.O_EXCL); !os.IsExist(err) {
				return file, err == nil, err
			}
			if file, err = opener(0); !os.IsNotExist(err) {
				return file, false, err
			}
		}
		return nil, false, err
	}
}
