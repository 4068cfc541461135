// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package board describes the Ethernet MAC of a few STM32 platforms:
// where its registers live, how they are laid out, and which pins are
// wired to its management bus.
package board // import "github.com/go-lpc/ethmac/board"

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-lpc/ethmac/mac"
)

var (
	ErrBoard = errors.New("board: unknown board")
	ErrPin   = errors.New("board: unknown pin")
)

// Board is a platform with an on-chip Ethernet MAC.
type Board struct {
	Name   string
	Base   int64       // physical address of the MAC register block
	Layout *mac.Layout // MIIM register layout
	HCLK   uint32      // AHB clock feeding the MAC, in Hz

	pins map[string]*mac.Pin
}

type pinDesc struct {
	name string
	caps mac.Capability
}

type boardDesc struct {
	base   int64
	layout *mac.Layout
	hclk   uint32
	pins   []pinDesc
}

// rmii is the RMII pinout of the Nucleo-144 and Discovery boards.
var rmii = []pinDesc{
	{"PA1", 0},           // REF_CLK
	{"PA2", mac.CapMDIO}, // MDIO
	{"PA7", 0},           // CRS_DV
	{"PB13", 0},          // TXD1
	{"PC1", mac.CapMDC},  // MDC
	{"PC4", 0},           // RXD0
	{"PC5", 0},           // RXD1
	{"PG11", 0},          // TX_EN
	{"PG13", 0},          // TXD0
}

var db = map[string]boardDesc{
	"stm32f4": {
		base:   0x40028000,
		layout: mac.LayoutMII,
		hclk:   168e6,
		pins:   rmii,
	},
	"stm32f7": {
		base:   0x40028000,
		layout: mac.LayoutMII,
		hclk:   216e6,
		pins:   rmii,
	},
	"stm32h7": {
		base:   0x40028000,
		layout: mac.LayoutMDIO,
		hclk:   200e6,
		pins:   rmii,
	},
	"stm32mp1": {
		base:   0x5800a000,
		layout: mac.LayoutMDIO,
		hclk:   266e6,
		pins: []pinDesc{
			{"PA1", 0},           // REF_CLK
			{"PA2", mac.CapMDIO}, // MDIO
			{"PA7", 0},           // CRS_DV
			{"PB11", 0},          // TX_EN
			{"PB12", 0},          // TXD0
			{"PB13", 0},          // TXD1
			{"PC1", mac.CapMDC},  // MDC
			{"PC4", 0},           // RXD0
			{"PC5", 0},           // RXD1
		},
	},
}

// Names returns the names of the known boards.
func Names() []string {
	o := make([]string, 0, len(db))
	for k := range db {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

// Lookup returns the board named name.
// Each call returns a new board, with its own set of pins.
func Lookup(name string) (*Board, error) {
	desc, ok := db[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrBoard, name)
	}
	b := &Board{
		Name:   name,
		Base:   desc.base,
		Layout: desc.layout,
		HCLK:   desc.hclk,
		pins:   make(map[string]*mac.Pin, len(desc.pins)),
	}
	for _, p := range desc.pins {
		b.pins[p.name] = mac.NewPin(p.name, p.caps)
	}
	return b, nil
}

// Pin returns the pin named name.
func (b *Board) Pin(name string) (*mac.Pin, error) {
	p, ok := b.pins[name]
	if !ok {
		return nil, fmt.Errorf("%w %q on board %s", ErrPin, name, b.Name)
	}
	return p, nil
}

// Pins returns the management pins named mdio and mdc, certified for
// their role.
func (b *Board) Pins(mdio, mdc string) (mac.Data, mac.Clock, error) {
	pdata, err := b.Pin(mdio)
	if err != nil {
		return mac.Data{}, mac.Clock{}, err
	}
	pclk, err := b.Pin(mdc)
	if err != nil {
		return mac.Data{}, mac.Clock{}, err
	}
	data, err := pdata.AsData()
	if err != nil {
		return mac.Data{}, mac.Clock{}, err
	}
	clk, err := pclk.AsClock()
	if err != nil {
		return mac.Data{}, mac.Clock{}, err
	}
	return data, clk, nil
}

// Open maps the MAC register block of the board from devmem and programs
// the MDC clock divider.
func (b *Board) Open(devmem string, opts ...mac.Option) (*mac.MAC, error) {
	m, err := mac.Open(devmem, b.Base, b.Layout, opts...)
	if err != nil {
		return nil, fmt.Errorf("board: could not open MAC of %s: %w", b.Name, err)
	}
	err = m.SetClock(b.HCLK)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("board: could not setup MDC clock of %s: %w", b.Name, err)
	}
	return m, nil
}
