// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/ethmac/internal/fakemac"
	"github.com/go-lpc/ethmac/mac"
	"github.com/go-lpc/ethmac/miim"
)

// newTestBus returns a MAC with 2 PHYs attached, at addresses 0 and 1,
// with their link down.
func newTestBus(t *testing.T) (*fakemac.Device, busCloser) {
	t.Helper()

	l := mac.LayoutMDIO
	dev := fakemac.New(fakemac.Layout{
		Addr:    l.Addr,
		Data:    l.Data,
		Busy:    l.Busy,
		OpMask:  l.OpMask,
		OpWrite: l.OpWrite,
		PhyPos:  l.PhyPos,
		RegPos:  l.RegPos,
	}, int(l.Span))

	for _, addr := range []uint8{0, 1} {
		phy := new(fakemac.PHY)
		phy.Regs[0] = 0x3100
		phy.Regs[1] = 0x7809
		phy.Regs[2] = 0x0007
		phy.Regs[3] = 0xc0f1
		phy.Regs[4] = 0x01e1
		phy.Regs[5] = 0x45e1
		dev.Attach(addr, phy)
	}

	mdio, err := mac.NewPin("PA2", mac.CapMDIO).AsData()
	if err != nil {
		t.Fatalf("could not create MDIO pin: %+v", err)
	}
	mdc, err := mac.NewPin("PC1", mac.CapMDC).AsClock()
	if err != nil {
		t.Fatalf("could not create MDC pin: %+v", err)
	}

	o, err := mac.New(mac.NewBlock(dev), l).Attach(mdio, mdc)
	if err != nil {
		t.Fatalf("could not attach pins: %+v", err)
	}
	return dev, o
}

func newContext(ctx context.Context) tdaq.Context {
	return tdaq.Context{
		Ctx: ctx,
		Msg: log.NewMsgStream("miim-srv", log.LvlError, new(bytes.Buffer)),
	}
}

type alert struct {
	prev, cur miim.Status
}

func TestServer(t *testing.T) {
	dev, bus := newTestBus(t)

	var (
		ctx    = newContext(context.Background())
		cfgs   []config
		alerts []alert
	)

	srv := newServer("miim-srv", func(cfg config) (busCloser, error) {
		cfgs = append(cfgs, cfg)
		return bus, nil
	})
	srv.alert = func(prev, cur miim.Status) {
		alerts = append(alerts, alert{prev, cur})
	}

	req := new(bytes.Buffer)
	enc := tdaq.NewEncoder(req)
	enc.WriteStr("stm32h7")
	enc.WriteStr("PA2")
	enc.WriteStr("PC1")

	err := srv.OnConfig(ctx, nil, tdaq.Frame{Body: req.Bytes()})
	if err != nil {
		t.Fatalf("could not /config: %+v", err)
	}
	if got, want := cfgs, []config{{board: "stm32h7", mdio: "PA2", mdc: "PC1"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid config:\ngot= %+v\nwant=%+v", got, want)
	}

	err = srv.OnInit(ctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not /init: %+v", err)
	}
	if got, want := srv.phys, []uint8{0, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid PHYs: got=%v, want=%v", got, want)
	}

	// not running yet.
	n := len(dev.Txns)
	err = srv.poll(ctx)
	if err != nil {
		t.Fatalf("could not poll: %+v", err)
	}
	if len(dev.Txns) != n {
		t.Fatalf("PHYs polled before /start")
	}

	err = srv.OnStart(ctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not /start: %+v", err)
	}

	err = srv.poll(ctx)
	if err != nil {
		t.Fatalf("could not poll: %+v", err)
	}
	if len(srv.data) != 0 || len(alerts) != 0 {
		t.Fatalf("link change without link change")
	}

	dev.PHYs[1].Regs[1] = 0x782d // link up, autoneg complete
	err = srv.poll(ctx)
	if err != nil {
		t.Fatalf("could not poll: %+v", err)
	}
	if got, want := len(alerts), 1; got != want {
		t.Fatalf("invalid number of alerts: got=%d, want=%d", got, want)
	}
	if alerts[0].prev.Link || !alerts[0].cur.Link || alerts[0].cur.Addr != 1 {
		t.Fatalf("invalid alert: %+v", alerts[0])
	}

	var frame tdaq.Frame
	err = srv.status(ctx, &frame)
	if err != nil {
		t.Fatalf("could not get status frame: %+v", err)
	}

	dec := tdaq.NewDecoder(bytes.NewReader(frame.Body))
	var got [7]uint32
	for i := range got {
		got[i] = dec.ReadU32()
	}
	if err := dec.Err(); err != nil {
		t.Fatalf("could not decode status frame: %+v", err)
	}
	if want := [7]uint32{1, 0x0007c0f1, 0x3100, 0x782d, 1, 100, 1}; got != want {
		t.Fatalf("invalid status frame:\ngot= %v\nwant=%v", got, want)
	}

	err = srv.poll(ctx)
	if err != nil {
		t.Fatalf("could not poll: %+v", err)
	}
	if len(srv.data) != 0 || len(alerts) != 1 {
		t.Fatalf("link change without link change")
	}

	err = srv.OnStop(ctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not /stop: %+v", err)
	}

	err = srv.OnQuit(ctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not /quit: %+v", err)
	}
	if _, err := bus.Read(0, 0); !errors.Is(err, mac.ErrMoved) {
		t.Fatalf("MAC not closed by /quit: %+v", err)
	}
	err = srv.OnQuit(ctx, nil, tdaq.Frame{})
	if err != nil {
		t.Fatalf("could not /quit twice: %+v", err)
	}
}

func TestServerErrors(t *testing.T) {
	ctx := newContext(context.Background())
	errOpen := errors.New("no such board")
	srv := newServer("miim-srv", func(cfg config) (busCloser, error) {
		return nil, errOpen
	})

	err := srv.OnInit(ctx, nil, tdaq.Frame{})
	if err == nil {
		t.Fatalf("expected an error")
	}
	err = srv.OnStart(ctx, nil, tdaq.Frame{})
	if err == nil {
		t.Fatalf("expected an error")
	}

	err = srv.OnConfig(ctx, nil, tdaq.Frame{})
	if !errors.Is(err, errOpen) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got, want := err.Error(), `could not open MAC of board "stm32f7": no such board`; got != want {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}

	err = srv.OnConfig(ctx, nil, tdaq.Frame{Body: []byte{1, 2}})
	if err == nil {
		t.Fatalf("expected an error decoding a truncated /config request")
	}
}

func TestRunLoop(t *testing.T) {
	srv := newServer("miim-srv", nil)
	srv.freq = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := srv.run(newContext(ctx))
	if err != nil {
		t.Fatalf("could not run: %+v", err)
	}

	var frame tdaq.Frame
	err = srv.status(newContext(ctx), &frame)
	if err != nil {
		t.Fatalf("could not get status frame: %+v", err)
	}
	if frame.Body != nil {
		t.Fatalf("unexpected status frame")
	}
}

func TestAlertMessage(t *testing.T) {
	prev := miim.Status{Addr: 3}
	cur := miim.Status{Addr: 3, Link: true}

	msg := alertMessage(prev, cur)
	if got, want := msg.GetHeader("Subject"), []string{"[miim-srv] link up: PHY=3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid subject:\ngot= %q\nwant=%q", got, want)
	}
}
