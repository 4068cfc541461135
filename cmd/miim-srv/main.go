// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command miim-srv starts a TDAQ server monitoring the link state of the
// Ethernet PHYs attached to an on-chip Ethernet MAC.
//
// The /config command may carry the board name and the names of the MDIO
// and MDC pins, as 3 TDAQ-encoded strings.
// Link state changes are published on the /phy-status output and, when
// the MAIL_XXX environment variables are set, sent by mail.
package main // import "github.com/go-lpc/ethmac/cmd/miim-srv"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
)

func main() {
	cmd := flags.New()

	srv := newServer(cmd.Args[0], openMAC)

	dev := tdaq.New(cmd, os.Stdout)
	dev.CmdHandle("/config", srv.OnConfig)
	dev.CmdHandle("/init", srv.OnInit)
	dev.CmdHandle("/reset", srv.OnReset)
	dev.CmdHandle("/start", srv.OnStart)
	dev.CmdHandle("/stop", srv.OnStop)
	dev.CmdHandle("/quit", srv.OnQuit)

	dev.OutputHandle("/phy-status", srv.status)

	dev.RunHandle(srv.run)

	err := dev.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
