// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command miim-ctl reads and writes the registers of the Ethernet PHYs
// attached to the management bus of an on-chip Ethernet MAC.
//
// Usage: miim-ctl [OPTIONS] CMD [ARGS...]
//
// Commands:
//
//	read PHY REG         read register REG of PHY
//	write PHY REG VALUE  write VALUE into register REG of PHY
//	dump PHY             read all the registers of PHY
//	scan                 list the PHYs answering on the bus
//	status PHY           display identifiers and link state of PHY
//	watch [-freq] PHY    display link state changes of PHY
//	shell                start an interactive session
//
// Registers can be given by address or by IEEE 802.3 name (BMCR, BMSR, ...).
//
// Example:
//
//	$> miim-ctl -board=stm32f7 status 0
//	phy=0 id=0x0007c131 (oui=0x0001f0 model=19 rev=1) link=up speed=100Mbps duplex=full
package main // import "github.com/go-lpc/ethmac/cmd/miim-ctl"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/go-lpc/ethmac"
	"github.com/go-lpc/ethmac/board"
	"github.com/go-lpc/ethmac/mac"
	"github.com/go-lpc/ethmac/miim"
	"github.com/go-lpc/ethmac/sfp"
)

func main() {
	log.SetPrefix("miim-ctl: ")
	log.SetFlags(0)

	var (
		bname   = flag.String("board", "stm32f7", "board to drive")
		devmem  = flag.String("dev", "/dev/mem", "physical memory device")
		mdio    = flag.String("mdio", "PA2", "name of the MDIO pin")
		mdc     = flag.String("mdc", "PC1", "name of the MDC pin")
		timeout = flag.Duration("timeout", 10*time.Millisecond, "timeout of a MIIM transaction (0: wait forever)")
		i2c     = flag.Int("sfp", -1, "I2C bus of a copper SFP cage to use instead of the MAC")
		verbose = flag.Bool("v", false, "enable verbose mode")
		vers    = flag.Bool("version", false, "display version and exit")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `miim-ctl reads and writes the registers of Ethernet PHYs.

Usage: miim-ctl [OPTIONS] CMD [ARGS...]

Commands: %s

Options:
`, cmdNames())
		flag.PrintDefaults()
	}

	flag.Parse()

	if *vers {
		v, sum := ethmac.Version()
		fmt.Printf("miim-ctl %s %s\n", v, sum)
		return
	}

	if flag.NArg() < 1 {
		flag.Usage()
		log.Fatalf("missing command")
	}

	cfg := config{
		board:   *bname,
		devmem:  *devmem,
		mdio:    *mdio,
		mdc:     *mdc,
		timeout: *timeout,
		sfp:     *i2c,
		verbose: *verbose,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := xmain(ctx, os.Stdout, cfg, flag.Args())
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type config struct {
	board   string
	devmem  string
	mdio    string
	mdc     string
	timeout time.Duration
	sfp     int
	verbose bool
}

type busCloser interface {
	miim.Bus
	io.Closer
}

func xmain(ctx context.Context, w io.Writer, cfg config, args []string) error {
	bus, err := openBus(cfg)
	if err != nil {
		return fmt.Errorf("could not open management bus: %w", err)
	}
	defer bus.Close()

	err = run(ctx, w, bus, args)
	if err != nil {
		return err
	}

	err = bus.Close()
	if err != nil {
		return fmt.Errorf("could not close management bus: %w", err)
	}
	return nil
}

func openBus(cfg config) (busCloser, error) {
	msg := log.New(io.Discard, "", 0)
	if cfg.verbose {
		msg = log.New(os.Stderr, "miim-ctl: ", 0)
	}

	if cfg.sfp >= 0 {
		bus, err := sfp.Open(cfg.sfp, msg)
		if err != nil {
			return nil, err
		}
		return bus, nil
	}

	b, err := board.Lookup(cfg.board)
	if err != nil {
		return nil, err
	}
	mdio, mdc, err := b.Pins(cfg.mdio, cfg.mdc)
	if err != nil {
		return nil, err
	}

	opts := []mac.Option{mac.WithLogger(msg)}
	if cfg.timeout > 0 {
		opts = append(opts, mac.WithTimeout(cfg.timeout))
	}

	m, err := b.Open(cfg.devmem, opts...)
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
