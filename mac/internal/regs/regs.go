// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the Ethernet MAC MIIM register map.
package regs // import "github.com/go-lpc/ethmac/mac/internal/regs"

// DWMAC 3.x (STM32F1/F2/F4/F7): ETH_MACMIIAR, ETH_MACMIIDR.
const (
	MACMIIAR = 0x10 // MII address register
	MACMIIDR = 0x14 // MII data register

	MACMIIAR_MB = 1 << 0 // MII busy
	MACMIIAR_MW = 1 << 1 // MII write

	MACMIIAR_CR_Pos = 2
	MACMIIAR_CR_Msk = 0x7 << MACMIIAR_CR_Pos // clock range
	MACMIIAR_MR_Pos = 6
	MACMIIAR_MR_Msk = 0x1f << MACMIIAR_MR_Pos // MII register
	MACMIIAR_PA_Pos = 11
	MACMIIAR_PA_Msk = 0x1f << MACMIIAR_PA_Pos // PHY address

	MACMIIDR_MD_Msk = 0xffff
)

// DWMAC 4.x (STM32H7, STM32MP1): ETH_MACMDIOAR, ETH_MACMDIODR.
const (
	MACMDIOAR = 0x200 // MDIO address register
	MACMDIODR = 0x204 // MDIO data register

	MACMDIOAR_MB   = 1 << 0 // MII busy
	MACMDIOAR_C45E = 1 << 1 // clause 45 PHY enable

	MACMDIOAR_GOC_Pos   = 2
	MACMDIOAR_GOC_Msk   = 0x3 << MACMDIOAR_GOC_Pos // MII operation command
	MACMDIOAR_GOC_Write = 0x1 << MACMDIOAR_GOC_Pos
	MACMDIOAR_GOC_Read  = 0x3 << MACMDIOAR_GOC_Pos

	MACMDIOAR_CR_Pos  = 8
	MACMDIOAR_CR_Msk  = 0xf << MACMDIOAR_CR_Pos // CSR clock range
	MACMDIOAR_RDA_Pos = 16
	MACMDIOAR_RDA_Msk = 0x1f << MACMDIOAR_RDA_Pos // register/device address
	MACMDIOAR_PA_Pos  = 21
	MACMDIOAR_PA_Msk  = 0x1f << MACMDIOAR_PA_Pos // physical layer address

	MACMDIODR_MD_Msk = 0xffff
)

// Span of the MAC register window that needs to be mapped.
const (
	SpanMII  = 0x400
	SpanMDIO = 0x1200
)

// CR values selecting the MDC clock divider, with the HCLK range they apply to.
const (
	CR_Div42  = 0x0 // 60-100 MHz
	CR_Div62  = 0x1 // 100-150 MHz
	CR_Div16  = 0x2 // 20-35 MHz
	CR_Div26  = 0x3 // 35-60 MHz
	CR_Div102 = 0x4 // 150-216 MHz (F4/F7), 150-250 MHz (H7/MP1)
	CR_Div124 = 0x5 // 250-300 MHz (H7/MP1)
)
