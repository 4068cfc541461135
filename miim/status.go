// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package miim

import (
	"fmt"

	"github.com/soypat/lneto/phy"
)

// Status is a snapshot of the state of a PHY.
type Status struct {
	Addr uint8
	ID   uint32 // PHYID1<<16 | PHYID2
	BMCR phy.BMCR
	BMSR phy.BMSR
	Link bool
	Mode phy.LinkMode // LinkDown if unknown
}

// OUI returns the organizationally unique identifier of the PHY vendor.
func (st Status) OUI() uint32 {
	return (st.ID >> 10) & 0x3fffff
}

// Model returns the vendor model number of the PHY.
func (st Status) Model() uint8 {
	return uint8(st.ID>>4) & 0x3f
}

// Revision returns the vendor revision number of the PHY.
func (st Status) Revision() uint8 {
	return uint8(st.ID) & 0xf
}

func (st Status) String() string {
	link := "down"
	if st.Link {
		link = "up"
	}
	duplex := "half"
	if st.Mode.IsFullDuplex() {
		duplex = "full"
	}
	return fmt.Sprintf(
		"phy=%d id=0x%08x (oui=0x%06x model=%d rev=%d) link=%s speed=%dMbps duplex=%s",
		st.Addr, st.ID, st.OUI(), st.Model(), st.Revision(),
		link, st.Mode.SpeedMbps(), duplex,
	)
}

// ReadStatus reads the identifiers and the link state of the PHY at
// address addr.
func ReadStatus(bus Bus, addr uint8) (Status, error) {
	st := Status{Addr: addr}

	var dev phy.Device
	err := dev.ConfigureAs22(Clause22(bus), addr)
	if err != nil {
		return st, fmt.Errorf("miim: could not configure PHY=%d: %w", addr, err)
	}

	id1, err := dev.ID1()
	if err != nil {
		return st, fmt.Errorf("miim: could not read PHY=%d ID1: %w", addr, err)
	}
	id2, err := dev.ID2()
	if err != nil {
		return st, fmt.Errorf("miim: could not read PHY=%d ID2: %w", addr, err)
	}
	st.ID = uint32(id1)<<16 | uint32(id2)

	st.BMCR, err = dev.BasicControl()
	if err != nil {
		return st, fmt.Errorf("miim: could not read PHY=%d BMCR: %w", addr, err)
	}

	// link status is latched low: the first read clears a past failure.
	_, _ = dev.BasicStatus()
	st.BMSR, err = dev.BasicStatus()
	if err != nil {
		return st, fmt.Errorf("miim: could not read PHY=%d BMSR: %w", addr, err)
	}
	st.Link = st.BMSR.LinkUp()
	if !st.Link {
		return st, nil
	}

	switch {
	case st.BMCR&phy.BMCRANEnable != 0:
		if !st.BMSR.AutoNegotiationComplete() {
			return st, nil
		}
		st.Mode, err = dev.NegotiatedLink()
		if err != nil {
			return st, fmt.Errorf("miim: could not read PHY=%d link mode: %w", addr, err)
		}
	default:
		st.Mode = forcedMode(st.BMCR)
	}
	return st, nil
}

func forcedMode(ctl phy.BMCR) phy.LinkMode {
	full := ctl&phy.BMCRFullDuplex != 0
	switch {
	case ctl&phy.BMCRSpeed1000 != 0 && ctl&phy.BMCRSpeed100 == 0:
		if full {
			return phy.Link1000FDX
		}
		return phy.Link1000HDX
	case ctl&phy.BMCRSpeed100 != 0:
		if full {
			return phy.Link100FDX
		}
		return phy.Link100HDX
	default:
		if full {
			return phy.Link10FDX
		}
		return phy.Link10HDX
	}
}
