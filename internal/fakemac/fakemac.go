// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakemac holds types to fake the MIIM block of an Ethernet MAC
// and the PHYs attached to it.
package fakemac // import "github.com/go-lpc/ethmac/internal/fakemac"

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Layout describes the MIIM registers of the faked MAC.
type Layout struct {
	Addr    int64
	Data    int64
	Busy    uint32
	OpMask  uint32
	OpWrite uint32
	PhyPos  uint
	RegPos  uint
}

// PHY is a PHY holding 32 plain 16-bit registers.
type PHY struct {
	Regs [32]uint16
}

// Txn is a MIIM transaction started by the driver.
type Txn struct {
	Ctrl  uint32 // address register value that started the transaction
	Data  uint32 // data register value when the transaction started
	Phy   uint8
	Reg   uint8
	Write bool
}

// Device is a MAC register block whose MIIM address and data registers
// drive a set of PHYs.
type Device struct {
	mu  sync.Mutex
	l   Layout
	mem []byte

	PHYs map[uint8]*PHY

	Latency int   // number of polls reading the busy bit set
	Stuck   bool  // transactions never complete
	Err     error // error returned by register accesses, if any

	Txns  []Txn // transactions started so far
	Polls int   // reads of the address register since the last transaction started

	pending int
}

// New returns a register block of size bytes laid out as l.
func New(l Layout, size int) *Device {
	return &Device{
		l:    l,
		mem:  make([]byte, size),
		PHYs: make(map[uint8]*PHY),
	}
}

// Attach connects a PHY at address addr.
func (dev *Device) Attach(addr uint8, phy *PHY) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.PHYs[addr] = phy
}

// Reg returns the raw value of the register at offset off.
func (dev *Device) Reg(off int64) uint32 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.get(off)
}

// SetReg sets the raw value of the register at offset off.
func (dev *Device) SetReg(off int64, v uint32) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.set(off, v)
}

// Last returns the last transaction started.
func (dev *Device) Last() Txn {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.Txns) == 0 {
		return Txn{}
	}
	return dev.Txns[len(dev.Txns)-1]
}

// ReadAt implements io.ReaderAt.
func (dev *Device) ReadAt(p []byte, off int64) (int, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.Err != nil {
		return 0, dev.Err
	}
	if off < 0 || int64(len(dev.mem)) < off+int64(len(p)) {
		return 0, fmt.Errorf("fakemac: invalid ReadAt offset %d", off)
	}

	if off == dev.l.Addr && len(p) == 4 {
		dev.Polls++
		v := dev.get(off)
		switch {
		case dev.Stuck:
		case dev.pending > 0:
			dev.pending--
		default:
			dev.set(off, v&^dev.l.Busy)
		}
	}
	return copy(p, dev.mem[off:]), nil
}

// WriteAt implements io.WriterAt.
func (dev *Device) WriteAt(p []byte, off int64) (int, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.Err != nil {
		return 0, dev.Err
	}
	if off < 0 || int64(len(dev.mem)) < off+int64(len(p)) {
		return 0, io.ErrShortWrite
	}
	n := copy(dev.mem[off:], p)

	if off == dev.l.Addr && len(p) == 4 {
		v := dev.get(off)
		if v&dev.l.Busy != 0 {
			dev.start(v)
		}
	}
	return n, nil
}

func (dev *Device) start(ctrl uint32) {
	txn := Txn{
		Ctrl:  ctrl,
		Data:  dev.get(dev.l.Data),
		Phy:   uint8(ctrl>>dev.l.PhyPos) & 0x1f,
		Reg:   uint8(ctrl>>dev.l.RegPos) & 0x1f,
		Write: ctrl&dev.l.OpMask == dev.l.OpWrite,
	}
	dev.Txns = append(dev.Txns, txn)
	dev.Polls = 0
	dev.pending = dev.Latency

	phy, ok := dev.PHYs[txn.Phy]
	switch {
	case txn.Write:
		if ok {
			phy.Regs[txn.Reg] = uint16(txn.Data)
		}
	default:
		v := uint32(0xffff) // pulled-up MDIO line
		if ok {
			v = uint32(phy.Regs[txn.Reg])
		}
		dev.set(dev.l.Data, v)
	}
}

func (dev *Device) get(off int64) uint32 {
	return binary.LittleEndian.Uint32(dev.mem[off : off+4])
}

func (dev *Device) set(off int64, v uint32) {
	binary.LittleEndian.PutUint32(dev.mem[off:off+4], v)
}
