// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Register is a 32-bit hardware register.
type Register interface {
	Get() uint32
	Set(v uint32)
}

// ReadWriterAt is the memory a register block is mapped onto.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Block is the register block of an Ethernet MAC peripheral.
//
// Register accesses never fail individually: the first I/O error is
// recorded and every later access becomes a no-op returning zero.
// The recorded error is reported by Err.
type Block struct {
	rw  ReadWriterAt
	buf [4]byte
	err error
}

// NewBlock returns a register block backed by rw.
// Registers are 32-bit little-endian words at their byte offset in rw.
func NewBlock(rw ReadWriterAt) *Block {
	return &Block{rw: rw}
}

// Reg returns the register at byte offset off.
func (blk *Block) Reg(off int64) Register {
	return &reg32{blk: blk, off: off}
}

// Err returns the first I/O error encountered while accessing registers.
func (blk *Block) Err() error {
	return blk.err
}

// Close releases the resources backing the block, if any.
func (blk *Block) Close() error {
	if c, ok := blk.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (blk *Block) readU32(off int64) uint32 {
	if blk.err != nil {
		return 0
	}
	_, blk.err = blk.rw.ReadAt(blk.buf[:4], off)
	if blk.err != nil {
		blk.err = fmt.Errorf("mac: could not read register 0x%x: %w", off, blk.err)
		return 0
	}
	return binary.LittleEndian.Uint32(blk.buf[:4])
}

func (blk *Block) writeU32(off int64, v uint32) {
	if blk.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(blk.buf[:4], v)
	_, blk.err = blk.rw.WriteAt(blk.buf[:4], off)
	if blk.err != nil {
		blk.err = fmt.Errorf("mac: could not write register 0x%x: %w", off, blk.err)
		return
	}
}

type reg32 struct {
	blk *Block
	off int64
}

func (r *reg32) Get() uint32  { return r.blk.readU32(r.off) }
func (r *reg32) Set(v uint32) { r.blk.writeU32(r.off, v) }

var (
	_ Register = (*reg32)(nil)
)
