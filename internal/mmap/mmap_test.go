// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap // import "github.com/go-lpc/ethmac/internal/mmap"

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		_, err = h.WriteAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid write-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestHandleFrom(t *testing.T) {
	h := HandleFrom([]byte{0, 1, 2, 3})

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	if got, want := h.At(1), byte(1); got != want {
		t.Fatalf("invalid value: got=%d, want=%d", got, want)
	}

	_, err := h.WriteAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid WriteAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.ReadAt(nil, -1)
	if got, want := err.Error(), "mmap: invalid ReadAt offset -1"; got != want {
		t.Fatalf("invalid error: %+v", err)
	}

	_, err = h.ReadAt(make([]byte, 2), 3)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid short read error: %+v", err)
	}

	_, err = h.WriteAt([]byte{1, 2}, 3)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("invalid short write error: %+v", err)
	}
}

func TestOpen(t *testing.T) {
	tmp := t.TempDir()
	fname := filepath.Join(tmp, "mem")

	page := os.Getpagesize()
	raw := make([]byte, 2*page)
	for i := range raw {
		raw[i] = byte(i)
	}
	err := os.WriteFile(fname, raw, 0644)
	if err != nil {
		t.Fatalf("could not create fake memory file: %+v", err)
	}

	const base = 0x10
	h, err := Open(fname, base, 8)
	if err != nil {
		t.Fatalf("could not mmap fake memory: %+v", err)
	}
	defer h.Close()

	if got, want := h.Len(), 8; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	buf := make([]byte, 4)
	_, err = h.ReadAt(buf, 4)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if got, want := buf[0], byte(base+4); got != want {
		t.Fatalf("invalid window offset: got=0x%x, want=0x%x", got, want)
	}

	_, err = h.WriteAt([]byte{0xff}, 0)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	if got, want := h.At(0), byte(0xff); got != want {
		t.Fatalf("invalid value: got=0x%x, want=0x%x", got, want)
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close handle: %+v", err)
	}

	_, err = Open(fname, 0, 0)
	if got, want := err.Error(), "mmap: invalid span 0"; got != want {
		t.Fatalf("invalid error: got=%q, want=%q", got, want)
	}

	_, err = Open(filepath.Join(tmp, "not-there"), 0, 4)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("invalid error: %+v", err)
	}
}
