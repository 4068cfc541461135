// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import (
	"errors"
	"fmt"

	"github.com/go-lpc/ethmac/mac/internal/regs"
)

var errClockRange = errors.New("mac: HCLK outside of supported MDC clock ranges")

// Layout describes where the MIIM address and data registers live
// inside the MAC register block, and how the address register fields
// are laid out.
type Layout struct {
	Name string

	Addr int64 // offset of the MIIM address register
	Data int64 // offset of the MIIM data register
	Span int64 // size of the register window to map

	Busy    uint32 // busy/start bit
	OpMask  uint32 // operation bits
	OpRead  uint32 // operation bits of a read transaction
	OpWrite uint32 // operation bits of a write transaction

	PhyPos uint // position of the 5-bit PHY address field
	RegPos uint // position of the 5-bit register address field

	ClockPos  uint   // position of the MDC clock range field
	ClockMask uint32 // mask of the MDC clock range field

	clocks []clockRange
}

type clockRange struct {
	min, max uint32 // HCLK range, in Hz
	cr       uint32
}

// LayoutMII is the MIIM register layout of the DWMAC 3.x found on
// STM32F1, F2, F4 and F7 devices (ETH_MACMIIAR, ETH_MACMIIDR).
var LayoutMII = &Layout{
	Name:      "mii",
	Addr:      regs.MACMIIAR,
	Data:      regs.MACMIIDR,
	Span:      regs.SpanMII,
	Busy:      regs.MACMIIAR_MB,
	OpMask:    regs.MACMIIAR_MW,
	OpRead:    0,
	OpWrite:   regs.MACMIIAR_MW,
	PhyPos:    regs.MACMIIAR_PA_Pos,
	RegPos:    regs.MACMIIAR_MR_Pos,
	ClockPos:  regs.MACMIIAR_CR_Pos,
	ClockMask: regs.MACMIIAR_CR_Msk,
	clocks: []clockRange{
		{20e6, 35e6, regs.CR_Div16},
		{35e6, 60e6, regs.CR_Div26},
		{60e6, 100e6, regs.CR_Div42},
		{100e6, 150e6, regs.CR_Div62},
		{150e6, 216e6, regs.CR_Div102},
	},
}

// LayoutMDIO is the MIIM register layout of the DWMAC 4.x found on
// STM32H7 and STM32MP1 devices (ETH_MACMDIOAR, ETH_MACMDIODR).
var LayoutMDIO = &Layout{
	Name:      "mdio",
	Addr:      regs.MACMDIOAR,
	Data:      regs.MACMDIODR,
	Span:      regs.SpanMDIO,
	Busy:      regs.MACMDIOAR_MB,
	OpMask:    regs.MACMDIOAR_GOC_Msk | regs.MACMDIOAR_C45E,
	OpRead:    regs.MACMDIOAR_GOC_Read,
	OpWrite:   regs.MACMDIOAR_GOC_Write,
	PhyPos:    regs.MACMDIOAR_PA_Pos,
	RegPos:    regs.MACMDIOAR_RDA_Pos,
	ClockPos:  regs.MACMDIOAR_CR_Pos,
	ClockMask: regs.MACMDIOAR_CR_Msk,
	clocks: []clockRange{
		{20e6, 35e6, regs.CR_Div16},
		{35e6, 60e6, regs.CR_Div26},
		{60e6, 100e6, regs.CR_Div42},
		{100e6, 150e6, regs.CR_Div62},
		{150e6, 250e6, regs.CR_Div102},
		{250e6, 300e6, regs.CR_Div124},
	},
}

// encode returns the address register value starting a transaction.
// Only the clock range field of cur is kept.
// Addresses are truncated to their 5-bit field width.
func (l *Layout) encode(cur uint32, phy, reg uint8, op uint32) uint32 {
	return cur&l.ClockMask |
		uint32(phy&0x1f)<<l.PhyPos |
		uint32(reg&0x1f)<<l.RegPos |
		op | l.Busy
}

// Fields decodes an address register value.
func (l *Layout) Fields(v uint32) (phy, reg uint8, write, busy bool) {
	phy = uint8(v>>l.PhyPos) & 0x1f
	reg = uint8(v>>l.RegPos) & 0x1f
	write = v&l.OpMask == l.OpWrite
	busy = v&l.Busy != 0
	return phy, reg, write, busy
}

// ClockRange returns the clock range field value selecting the MDC
// divider for an AHB clock of hclk Hz.
func (l *Layout) ClockRange(hclk uint32) (uint32, error) {
	for _, c := range l.clocks {
		if c.min <= hclk && hclk <= c.max {
			return c.cr, nil
		}
	}
	return 0, fmt.Errorf("%w (hclk=%d Hz, layout=%s)", errClockRange, hclk, l.Name)
}
