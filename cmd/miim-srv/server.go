// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/ethmac/board"
	"github.com/go-lpc/ethmac/mac"
	"github.com/go-lpc/ethmac/miim"
)

type busCloser interface {
	miim.Bus
	io.Closer
}

type config struct {
	board string
	mdio  string
	mdc   string
}

type openFunc func(cfg config) (busCloser, error)

func openMAC(cfg config) (busCloser, error) {
	b, err := board.Lookup(cfg.board)
	if err != nil {
		return nil, err
	}
	mdio, mdc, err := b.Pins(cfg.mdio, cfg.mdc)
	if err != nil {
		return nil, err
	}
	m, err := b.Open("/dev/mem", mac.WithTimeout(10*time.Millisecond))
	if err != nil {
		return nil, err
	}
	o, err := m.Attach(mdio, mdc)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return o, nil
}

type server struct {
	name string
	open openFunc
	freq time.Duration

	mu      sync.Mutex
	cfg     config
	bus     busCloser
	phys    []uint8
	links   map[uint8]miim.Status
	running bool

	data  chan []byte
	alert func(prev, cur miim.Status)
}

func newServer(name string, open openFunc) *server {
	return &server{
		name: name,
		open: open,
		freq: time.Second,
		cfg: config{
			board: "stm32f7",
			mdio:  "PA2",
			mdc:   "PC1",
		},
		links: make(map[uint8]miim.Status),
		data:  make(chan []byte, 1024),
		alert: alertMail,
	}
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	srv.mu.Lock()
	defer srv.mu.Unlock()

	cfg := srv.cfg
	if len(req.Body) > 0 {
		dec := tdaq.NewDecoder(bytes.NewReader(req.Body))
		cfg.board = dec.ReadStr()
		cfg.mdio = dec.ReadStr()
		cfg.mdc = dec.ReadStr()
		if err := dec.Err(); err != nil {
			ctx.Msg.Errorf("could not decode /config request: %+v", err)
			return fmt.Errorf("could not decode /config request: %w", err)
		}
	}

	if srv.bus != nil {
		_ = srv.bus.Close()
		srv.bus = nil
	}

	bus, err := srv.open(cfg)
	if err != nil {
		ctx.Msg.Errorf("could not open MAC of board %q: %+v", cfg.board, err)
		return fmt.Errorf("could not open MAC of board %q: %w", cfg.board, err)
	}
	srv.cfg = cfg
	srv.bus = bus
	ctx.Msg.Infof("board=%s MDIO=%s MDC=%s", cfg.board, cfg.mdio, cfg.mdc)

	return nil
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.bus == nil {
		return fmt.Errorf("could not scan PHYs: no MAC configured")
	}

	phys, err := miim.Scan(srv.bus)
	if err != nil {
		ctx.Msg.Errorf("could not scan PHYs: %+v", err)
		return fmt.Errorf("could not scan PHYs: %w", err)
	}

	srv.phys = phys
	srv.links = make(map[uint8]miim.Status, len(phys))
	for _, addr := range phys {
		st, err := miim.ReadStatus(srv.bus, addr)
		if err != nil {
			ctx.Msg.Errorf("could not read status of PHY=%d: %+v", addr, err)
			return fmt.Errorf("could not read status of PHY=%d: %w", addr, err)
		}
		srv.links[addr] = st
		ctx.Msg.Infof("%v", st)
	}

	return nil
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")

	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.running = false
	srv.phys = nil
	srv.links = make(map[uint8]miim.Status)
	return nil
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if srv.bus == nil {
		return fmt.Errorf("could not start link polling: no MAC configured")
	}
	srv.running = true
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")

	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.running = false
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")

	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.running = false
	if srv.bus == nil {
		return nil
	}
	err := srv.bus.Close()
	srv.bus = nil
	if err != nil {
		return fmt.Errorf("could not close MAC: %w", err)
	}
	return nil
}

func (srv *server) status(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

func (srv *server) run(ctx tdaq.Context) error {
	tick := time.NewTicker(srv.freq)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tick.C:
			err := srv.poll(ctx)
			if err != nil {
				ctx.Msg.Errorf("could not poll PHYs: %+v", err)
			}
		}
	}
}

// poll reads the link state of all the PHYs and publishes the changes.
func (srv *server) poll(ctx tdaq.Context) error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	if !srv.running || srv.bus == nil {
		return nil
	}

	for _, addr := range srv.phys {
		cur, err := miim.ReadStatus(srv.bus, addr)
		if err != nil {
			return fmt.Errorf("could not read status of PHY=%d: %w", addr, err)
		}
		prev := srv.links[addr]
		srv.links[addr] = cur
		if prev.Link == cur.Link && prev.Mode == cur.Mode {
			continue
		}

		ctx.Msg.Infof("link change: %v", cur)
		select {
		case srv.data <- encodeStatus(cur):
		default:
			ctx.Msg.Errorf("dropped status of PHY=%d", addr)
		}
		if prev.Link != cur.Link && srv.alert != nil {
			srv.alert(prev, cur)
		}
	}
	return nil
}

// encodeStatus encodes a PHY status record:
// addr, ID, BMCR, BMSR, link (0|1), speed (Mbps), full-duplex (0|1).
func encodeStatus(st miim.Status) []byte {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteU32(uint32(st.Addr))
	enc.WriteU32(st.ID)
	enc.WriteU32(uint32(st.BMCR))
	enc.WriteU32(uint32(st.BMSR))
	enc.WriteU32(b2u32(st.Link))
	enc.WriteU32(uint32(st.Mode.SpeedMbps()))
	enc.WriteU32(b2u32(st.Mode.IsFullDuplex()))
	return buf.Bytes()
}

func b2u32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
