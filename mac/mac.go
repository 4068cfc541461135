// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mac drives the Serial Management Interface (SMI, or MIIM) of
// an on-chip Ethernet MAC, to read and write the 16-bit registers of
// the attached Ethernet PHYs.
//
// The MAC performs the MDIO framing in hardware. Software programs the
// PHY and register addresses, starts the transaction and polls the busy
// bit until the hardware is done.
//
// The MDC and MDIO pins are the shared resource: a MAC handle lends its
// management bus only to a Session holding both pins, or gives it away
// for good to an OwnedMAC (see MAC.Attach and OwnedMAC.Detach).
package mac // import "github.com/go-lpc/ethmac/mac"

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-lpc/ethmac/internal/mmap"
)

var (
	ErrBusy       = errors.New("mac: management bus already in use")
	ErrMoved      = errors.New("mac: handle moved")
	ErrTimeout    = errors.New("mac: MIIM transaction timed out")
	ErrCapability = errors.New("mac: pin lacks management capability")
	ErrNoPin      = errors.New("mac: missing management pin")
	ErrClosed     = errors.New("mac: session closed")
)

type config struct {
	msg      *log.Logger
	timeout  time.Duration
	maxPolls int
}

func newConfig() config {
	return config{
		msg: log.New(io.Discard, "mac: ", 0),
	}
}

// wait returns the BusyWaitFunc of a single transaction.
func (cfg *config) wait() BusyWaitFunc {
	var ws []BusyWaitFunc
	if cfg.maxPolls > 0 {
		ws = append(ws, MaxPolls(cfg.maxPolls))
	}
	if cfg.timeout > 0 {
		ws = append(ws, Timeout(cfg.timeout))
	}
	switch len(ws) {
	case 0:
		return nil
	case 1:
		return ws[0]
	}
	return func() error {
		for _, w := range ws {
			err := w()
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// Option configures a MAC handle.
type Option func(*config)

// WithLogger sets the logger used to trace MIIM transactions.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithTimeout bounds the duration of a single MIIM transaction.
// The default is to wait for the hardware forever.
func WithTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// WithMaxPolls bounds the number of busy polls of a single MIIM transaction.
// The default is to wait for the hardware forever.
func WithMaxPolls(n int) Option {
	return func(cfg *config) {
		cfg.maxPolls = n
	}
}

const (
	stateFree int32 = iota
	stateLeased
	stateMoved
)

// MAC is an Ethernet MAC handle that does not own its MDIO and MDC pins.
//
// Access to the PHYs goes through a Session, see MAC.SMI.
type MAC struct {
	blk    *Block
	layout *Layout
	cfg    config

	ar Register
	dr Register

	state atomic.Int32
}

// New returns a MAC handle driving the register block blk, laid out as l.
func New(blk *Block, l *Layout, opts ...Option) *MAC {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newMAC(blk, l, cfg)
}

func newMAC(blk *Block, l *Layout, cfg config) *MAC {
	return &MAC{
		blk:    blk,
		layout: l,
		cfg:    cfg,
		ar:     blk.Reg(l.Addr),
		dr:     blk.Reg(l.Data),
	}
}

// Open maps the register block of the MAC at physical address base from
// devmem (usually /dev/mem) and returns a MAC handle driving it.
func Open(devmem string, base int64, l *Layout, opts ...Option) (*MAC, error) {
	h, err := mmap.Open(devmem, base, l.Span)
	if err != nil {
		return nil, fmt.Errorf("mac: could not map MAC registers: %w", err)
	}
	return New(NewBlock(h), l, opts...), nil
}

// Block returns the register block driven by the handle.
func (m *MAC) Block() *Block { return m.blk }

// Layout returns the MIIM register layout of the handle.
func (m *MAC) Layout() *Layout { return m.layout }

// Close releases the register block.
func (m *MAC) Close() error {
	err := m.acquire()
	if err != nil {
		return err
	}
	defer m.release()
	return m.blk.Close()
}

// SetClock programs the MDC clock divider for an AHB clock of hclk Hz.
func (m *MAC) SetClock(hclk uint32) error {
	cr, err := m.layout.ClockRange(hclk)
	if err != nil {
		return err
	}

	err = m.acquire()
	if err != nil {
		return fmt.Errorf("mac: could not set MDC clock range: %w", err)
	}
	defer m.release()

	v := m.ar.Get()
	v &^= m.layout.ClockMask
	v |= cr << m.layout.ClockPos
	m.ar.Set(v)

	if err := m.blk.Err(); err != nil {
		return fmt.Errorf("mac: could not set MDC clock range: %w", err)
	}
	m.cfg.msg.Printf("MDC clock range=0x%x (hclk=%d Hz)", cr, hclk)
	return nil
}

// SMI borrows access to the MAC's serial management interface.
//
// The returned session holds the MAC and both management pins until it
// is closed: no other session can be created on them in the meantime,
// and SMI fails immediately with ErrBusy.
func (m *MAC) SMI(mdio Data, mdc Clock) (*Session, error) {
	err := m.acquire()
	if err != nil {
		return nil, err
	}
	err = acquirePins(mdio, mdc)
	if err != nil {
		m.release()
		return nil, err
	}
	return &Session{mac: m, mdio: mdio, mdc: mdc}, nil
}

// WithSMI runs f with a session on the MAC's serial management interface.
// The session is closed when f returns or panics.
func (m *MAC) WithSMI(mdio Data, mdc Clock, f func(s *Session) error) error {
	s, err := m.SMI(mdio, mdc)
	if err != nil {
		return err
	}
	defer s.Close()
	return f(s)
}

// Attach hands the MAC and both management pins over to a new OwnedMAC.
// m cannot be used anymore afterwards: its methods fail with ErrMoved.
func (m *MAC) Attach(mdio Data, mdc Clock) (*OwnedMAC, error) {
	err := m.acquire()
	if err != nil {
		return nil, fmt.Errorf("mac: could not attach pins: %w", err)
	}
	err = acquirePins(mdio, mdc)
	if err != nil {
		m.release()
		return nil, fmt.Errorf("mac: could not attach pins: %w", err)
	}
	m.state.Store(stateMoved)

	m.cfg.msg.Printf("attached MDIO=%s, MDC=%s", mdio.pin.name, mdc.pin.name)
	return &OwnedMAC{
		mac:  newMAC(m.blk, m.layout, m.cfg),
		mdio: mdio,
		mdc:  mdc,
	}, nil
}

func (m *MAC) acquire() error {
	if m.state.CompareAndSwap(stateFree, stateLeased) {
		return nil
	}
	if m.state.Load() == stateMoved {
		return ErrMoved
	}
	return ErrBusy
}

func (m *MAC) release() {
	m.state.CompareAndSwap(stateLeased, stateFree)
}

func (m *MAC) read(phy, reg uint8) (uint16, error) {
	v, err := Read(m.ar, m.dr, m.layout, phy, reg, m.cfg.wait())
	if err == nil {
		err = m.blk.Err()
	}
	if err != nil {
		return 0, fmt.Errorf("mac: could not read PHY=%d reg=%d: %w", phy&0x1f, reg&0x1f, err)
	}
	m.cfg.msg.Printf("read  PHY=%d reg=%d: 0x%04x", phy&0x1f, reg&0x1f, v)
	return v, nil
}

func (m *MAC) write(phy, reg uint8, v uint16) error {
	err := Write(m.ar, m.dr, m.layout, phy, reg, v, m.cfg.wait())
	if err == nil {
		err = m.blk.Err()
	}
	if err != nil {
		return fmt.Errorf("mac: could not write PHY=%d reg=%d: %w", phy&0x1f, reg&0x1f, err)
	}
	m.cfg.msg.Printf("write PHY=%d reg=%d: 0x%04x", phy&0x1f, reg&0x1f, v)
	return nil
}
