// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import (
	"sync"

	"github.com/go-lpc/ethmac/miim"
)

// OwnedMAC is an Ethernet MAC handle owning its MDIO and MDC pins.
//
// PHY registers are accessed directly with Read and Write.
// Transactions issued concurrently on the same handle are serialized.
type OwnedMAC struct {
	mu    sync.Mutex
	mac   *MAC
	mdio  Data
	mdc   Clock
	moved bool
}

// Read reads register reg of the PHY at address phy.
func (o *OwnedMAC) Read(phy, reg uint8) (uint16, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.moved {
		return 0, ErrMoved
	}
	return o.mac.read(phy, reg)
}

// Write writes v into register reg of the PHY at address phy.
func (o *OwnedMAC) Write(phy, reg uint8, v uint16) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.moved {
		return ErrMoved
	}
	return o.mac.write(phy, reg, v)
}

// Block returns the register block driven by the handle.
func (o *OwnedMAC) Block() *Block { return o.mac.blk }

// Pins returns the management pins owned by the handle.
func (o *OwnedMAC) Pins() (Data, Clock) { return o.mdio, o.mdc }

// Detach releases the MDIO and MDC pins and returns a MAC that has to
// borrow them again, along with the pins.
// o cannot be used anymore afterwards: its methods fail with ErrMoved.
func (o *OwnedMAC) Detach() (*MAC, Data, Clock, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.moved {
		return nil, Data{}, Clock{}, ErrMoved
	}
	o.moved = true
	releasePins(o.mdio, o.mdc)

	m := newMAC(o.mac.blk, o.mac.layout, o.mac.cfg)
	m.cfg.msg.Printf("detached MDIO=%s, MDC=%s", o.mdio.pin.name, o.mdc.pin.name)
	return m, o.mdio, o.mdc, nil
}

// Close releases the pins and the register block.
func (o *OwnedMAC) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.moved {
		return ErrMoved
	}
	o.moved = true
	releasePins(o.mdio, o.mdc)
	return o.mac.blk.Close()
}

var _ miim.Bus = (*OwnedMAC)(nil)
