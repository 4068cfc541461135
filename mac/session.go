// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import (
	"sync"

	"github.com/go-lpc/ethmac/miim"
)

// Session is a short-lived lease on a MAC and its two management pins.
//
// A Session is not safe for concurrent use.
type Session struct {
	mac  *MAC
	mdio Data
	mdc  Clock

	once   sync.Once
	closed bool
}

// Read reads register reg of the PHY at address phy.
func (s *Session) Read(phy, reg uint8) (uint16, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.mac.read(phy, reg)
}

// Write writes v into register reg of the PHY at address phy.
func (s *Session) Write(phy, reg uint8, v uint16) error {
	if s.closed {
		return ErrClosed
	}
	return s.mac.write(phy, reg, v)
}

// Close gives the MAC and the pins back. Close is idempotent.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.closed = true
		releasePins(s.mdio, s.mdc)
		s.mac.release()
	})
	return nil
}

var _ miim.Bus = (*Session)(nil)
