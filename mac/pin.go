// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Capability is the set of management bus roles a pin may be used for.
type Capability uint8

const (
	CapMDC  Capability = 1 << iota // management clock
	CapMDIO                        // management data
)

func (c Capability) String() string {
	var o []string
	if c&CapMDC != 0 {
		o = append(o, "mdc")
	}
	if c&CapMDIO != 0 {
		o = append(o, "mdio")
	}
	if len(o) == 0 {
		return "none"
	}
	return strings.Join(o, "|")
}

// Pin describes a GPIO pin already switched to its Ethernet alternate
// function, together with the management roles the platform certified
// it for.
//
// A pin can be leased by at most one session or handle at a time.
type Pin struct {
	name string
	caps Capability
	held atomic.Bool
}

// NewPin returns a pin descriptor certified for the caps roles.
func NewPin(name string, caps Capability) *Pin {
	return &Pin{name: name, caps: caps}
}

func (p *Pin) Name() string             { return p.name }
func (p *Pin) Capabilities() Capability { return p.caps }

// InUse reports whether the pin is currently leased.
func (p *Pin) InUse() bool { return p.held.Load() }

// AsClock certifies p for the management clock (MDC) role.
func (p *Pin) AsClock() (Clock, error) {
	if p == nil || p.caps&CapMDC == 0 {
		return Clock{}, fmt.Errorf("mac: pin %s cannot drive MDC: %w", p, ErrCapability)
	}
	return Clock{pin: p}, nil
}

// AsData certifies p for the management data (MDIO) role.
func (p *Pin) AsData() (Data, error) {
	if p == nil || p.caps&CapMDIO == 0 {
		return Data{}, fmt.Errorf("mac: pin %s cannot drive MDIO: %w", p, ErrCapability)
	}
	return Data{pin: p}, nil
}

func (p *Pin) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s[%v]", p.name, p.caps)
}

func (p *Pin) acquire() error {
	if !p.held.CompareAndSwap(false, true) {
		return fmt.Errorf("mac: could not lease pin %s: %w", p.name, ErrBusy)
	}
	return nil
}

func (p *Pin) release() {
	p.held.Store(false)
}

// Clock is a pin certified for the MDC role.
type Clock struct{ pin *Pin }

// Pin returns the underlying pin.
func (c Clock) Pin() *Pin { return c.pin }

// Data is a pin certified for the MDIO role.
type Data struct{ pin *Pin }

// Pin returns the underlying pin.
func (d Data) Pin() *Pin { return d.pin }

// acquirePins leases both management pins, or none of them.
func acquirePins(mdio Data, mdc Clock) error {
	if mdio.pin == nil || mdc.pin == nil {
		return ErrNoPin
	}
	err := mdio.pin.acquire()
	if err != nil {
		return err
	}
	err = mdc.pin.acquire()
	if err != nil {
		mdio.pin.release()
		return err
	}
	return nil
}

func releasePins(mdio Data, mdc Clock) {
	mdc.pin.release()
	mdio.pin.release()
}
