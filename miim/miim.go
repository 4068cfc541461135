// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package miim defines the generic IEEE 802.3 Clause 22 management
// interface, and bridges it to PHY management code.
package miim // import "github.com/go-lpc/ethmac/miim"

import (
	"errors"
	"fmt"

	"github.com/soypat/lneto/phy"
)

var (
	ErrClause45 = errors.New("miim: clause 45 access not supported")
	ErrRegister = errors.New("miim: clause 22 register address out of range")
)

// Bus is a Clause 22 management interface: it reads and writes the
// 16-bit registers (0-31) of the PHYs (0-31) attached to a management bus.
type Bus interface {
	Read(phy, reg uint8) (uint16, error)
	Write(phy, reg uint8, v uint16) error
}

// NumRegs is the number of Clause 22 registers of a PHY.
const NumRegs = 32

// Clause22 returns a phy.MDIOBus driving the PHYs of bus.
func Clause22(bus Bus) phy.MDIOBus {
	return clause22{bus}
}

type clause22 struct {
	bus Bus
}

func (c clause22) Read(phyAddr, devAddr uint8, regAddr uint16) (uint16, error) {
	if devAddr != 0 {
		return 0xffff, fmt.Errorf("%w (dev=%d)", ErrClause45, devAddr)
	}
	if regAddr >= NumRegs {
		return 0xffff, fmt.Errorf("%w (reg=%d)", ErrRegister, regAddr)
	}
	return c.bus.Read(phyAddr, uint8(regAddr))
}

func (c clause22) Write(phyAddr, devAddr uint8, regAddr, value uint16) error {
	if devAddr != 0 {
		return fmt.Errorf("%w (dev=%d)", ErrClause45, devAddr)
	}
	if regAddr >= NumRegs {
		return fmt.Errorf("%w (reg=%d)", ErrRegister, regAddr)
	}
	return c.bus.Write(phyAddr, uint8(regAddr), value)
}

// Dump reads all the Clause 22 registers of the PHY at address addr.
func Dump(bus Bus, addr uint8) ([NumRegs]uint16, error) {
	var regs [NumRegs]uint16
	for i := range regs {
		v, err := bus.Read(addr, uint8(i))
		if err != nil {
			return regs, fmt.Errorf("miim: could not dump PHY=%d: %w", addr, err)
		}
		regs[i] = v
	}
	return regs, nil
}

// Scan returns the addresses of the PHYs answering on bus.
func Scan(bus Bus) ([]uint8, error) {
	dst := make([]uint8, NumRegs)
	n, err := phy.FindClause22PHYs(Clause22(bus), dst)
	if err != nil {
		return nil, fmt.Errorf("miim: could not scan bus: %w", err)
	}
	return dst[:n], nil
}

var names = [NumRegs]string{
	0x00: "BMCR",
	0x01: "BMSR",
	0x02: "PHYID1",
	0x03: "PHYID2",
	0x04: "ANAR",
	0x05: "ANLPAR",
	0x06: "ANER",
	0x07: "ANNPTR",
	0x08: "ANNPRR",
	0x09: "GBCR",
	0x0a: "GBSR",
	0x0d: "MMDCR",
	0x0e: "MMDAADR",
	0x0f: "GBESR",
}

// RegName returns the IEEE 802.3 name of register reg, or its hex
// address for vendor specific registers.
func RegName(reg uint8) string {
	if int(reg) < len(names) && names[reg] != "" {
		return names[reg]
	}
	return fmt.Sprintf("0x%02x", reg)
}

// RegAddr returns the address of the register named name.
func RegAddr(name string) (uint8, bool) {
	for i, n := range names {
		if n != "" && n == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// RegNames returns the names of the IEEE 802.3 registers.
func RegNames() []string {
	o := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			o = append(o, n)
		}
	}
	return o
}
