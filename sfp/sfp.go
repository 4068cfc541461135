// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sfp gives access to the PHY of a copper SFP module.
//
// Copper SFP modules expose the Clause 22 registers of their PHY on the
// I2C bus of the SFP cage, at address 0x56, as 16-bit big-endian words.
package sfp // import "github.com/go-lpc/ethmac/sfp"

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/bits"
	"sync"

	"github.com/go-daq/smbus"
	"github.com/go-lpc/ethmac/miim"
)

const (
	// Addr is the I2C address of the PHY of a copper SFP module.
	Addr = 0x56

	// PHYAddr is the MDIO address the SFP PHY answers to.
	PHYAddr = Addr - 0x40
)

var ErrNoPHY = errors.New("sfp: no PHY at MDIO address")

type conn interface {
	ReadWord(addr, reg uint8) (uint16, error)
	WriteWord(addr, reg uint8, v uint16) error
	Close() error
}

// Bus is a management bus over the I2C bus of an SFP cage.
type Bus struct {
	mu  sync.Mutex
	c   conn
	msg *log.Logger
}

// Open opens the I2C bus number i2c of an SFP cage.
func Open(i2c int, msg *log.Logger) (*Bus, error) {
	c, err := smbus.Open(i2c, Addr)
	if err != nil {
		return nil, fmt.Errorf("sfp: could not open i2c-%d: %w", i2c, err)
	}
	return newBus(c, msg), nil
}

func newBus(c conn, msg *log.Logger) *Bus {
	if msg == nil {
		msg = log.New(io.Discard, "sfp: ", 0)
	}
	return &Bus{c: c, msg: msg}
}

// Close closes the underlying I2C connection.
func (bus *Bus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.c.Close()
}

// Read reads register reg of the PHY at MDIO address phy.
func (bus *Bus) Read(phy, reg uint8) (uint16, error) {
	phy &= 0x1f
	reg &= 0x1f
	if phy != PHYAddr {
		return 0xffff, fmt.Errorf("%w %d", ErrNoPHY, phy)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	v, err := bus.c.ReadWord(Addr, reg)
	if err != nil {
		return 0xffff, fmt.Errorf("sfp: could not read reg=%d: %w", reg, err)
	}
	v = bits.ReverseBytes16(v)
	bus.msg.Printf("read  reg=%d: 0x%04x", reg, v)
	return v, nil
}

// Write writes v into register reg of the PHY at MDIO address phy.
func (bus *Bus) Write(phy, reg uint8, v uint16) error {
	phy &= 0x1f
	reg &= 0x1f
	if phy != PHYAddr {
		return fmt.Errorf("%w %d", ErrNoPHY, phy)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	err := bus.c.WriteWord(Addr, reg, bits.ReverseBytes16(v))
	if err != nil {
		return fmt.Errorf("sfp: could not write reg=%d: %w", reg, err)
	}
	bus.msg.Printf("write reg=%d: 0x%04x", reg, v)
	return nil
}

var (
	_ miim.Bus = (*Bus)(nil)
	_ conn     = (*smbus.Conn)(nil)
)
