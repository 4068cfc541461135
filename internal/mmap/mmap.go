// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides access to memory-mapped register windows.
package mmap // import "github.com/go-lpc/ethmac/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a window over a memory-mapped region.
type Handle struct {
	data []byte // whole mapping, page aligned
	off  int    // start of the window inside data
}

// HandleFrom returns a handle over an already mapped region.
func HandleFrom(data []byte) *Handle {
	h := &Handle{data: data}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h
}

// Open maps span bytes of the physical memory exposed by fname
// (usually /dev/mem), starting at address base.
// base does not need to be page aligned.
func Open(fname string, base, span int64) (*Handle, error) {
	if span <= 0 {
		return nil, fmt.Errorf("mmap: invalid span %d", span)
	}
	f, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not open %q: %w", fname, err)
	}
	// the mapping outlives the file descriptor.
	defer f.Close()

	var (
		page  = int64(os.Getpagesize())
		start = base &^ (page - 1)
		delta = base - start
	)
	data, err := unix.Mmap(
		int(f.Fd()),
		start, int(span+delta),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not mmap 0x%x (span=0x%x) from %q: %w", base, span, fname, err)
	}
	if data == nil || int64(len(data)) != span+delta {
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(data))
	}

	h := HandleFrom(data)
	h.off = int(delta)
	return h, nil
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	data := h.data
	h.data = nil
	runtime.SetFinalizer(h, nil)

	return unix.Munmap(data)
}

// Len returns the length of the memory-mapped window.
func (h *Handle) Len() int {
	return len(h.data) - h.off
}

// At returns the byte at index i.
func (h *Handle) At(i int) byte {
	return h.data[h.off+i]
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(h.Len()) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[h.off+int(off):])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(h.Len()) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[h.off+int(off):], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
