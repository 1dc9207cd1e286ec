// Copyright 2015 Aleksandr Demakin. All rights reserved.

package allocator

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// ByteSliceData returns a pointer to the data of the given byte slice.
func ByteSliceData(slice []byte) unsafe.Pointer {
	header := (*reflect.SliceHeader)(unsafe.Pointer(&slice))
	return unsafe.Pointer(header.Data)
}

// AdvancePointer adds shift value to 'p' pointer.
func AdvancePointer(p unsafe.Pointer, shift uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) + shift)
}

// IsAligned returns true, if p is a multiple of align.
func IsAligned(p unsafe.Pointer, align uintptr) bool {
	return uintptr(p)%align == 0
}

// Place returns a pointer to a cell of the given size at memory[offset:].
// It checks, that the cell fits into the slice, and that it is properly aligned.
func Place(memory []byte, offset, size int, align uintptr) (unsafe.Pointer, error) {
	if offset < 0 || size <= 0 || offset+size > len(memory) {
		return nil, errors.Errorf("cell [%d, %d) does not fit into %d bytes", offset, offset+size, len(memory))
	}
	ptr := AdvancePointer(ByteSliceData(memory), uintptr(offset))
	if !IsAligned(ptr, align) {
		return nil, errors.Errorf("cell at offset %d is not %d-byte aligned", offset, align)
	}
	return ptr, nil
}
