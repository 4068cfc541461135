// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-lpc/ethmac/miim"
	"golang.org/x/sync/errgroup"
)

var errUsage = errors.New("invalid usage")

type cmdFunc func(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error

var cmds map[string]cmdFunc

func init() {
	cmds = map[string]cmdFunc{
		"read":   cmdRead,
		"write":  cmdWrite,
		"dump":   cmdDump,
		"scan":   cmdScan,
		"status": cmdStatus,
		"watch":  cmdWatch,
		"shell":  cmdShell,
	}
}

func cmdNames() string {
	names := make([]string, 0, len(cmds))
	for k := range cmds {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func run(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command: %w", errUsage)
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (available: %s)", args[0], cmdNames())
	}
	return cmd(ctx, w, bus, args[1:])
}

func parsePHY(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || v > 31 {
		return 0, fmt.Errorf("invalid PHY address %q", s)
	}
	return uint8(v), nil
}

func parseReg(s string) (uint8, error) {
	if reg, ok := miim.RegAddr(strings.ToUpper(s)); ok {
		return reg, nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil || v >= miim.NumRegs {
		return 0, fmt.Errorf("invalid register %q", s)
	}
	return uint8(v), nil
}

func parseValue(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid register value %q", s)
	}
	return uint16(v), nil
}

func cmdRead(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("read PHY REG: %w", errUsage)
	}
	addr, err := parsePHY(args[0])
	if err != nil {
		return err
	}
	reg, err := parseReg(args[1])
	if err != nil {
		return err
	}

	v, err := bus.Read(addr, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "0x%04x\n", v)
	return nil
}

func cmdWrite(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("write PHY REG VALUE: %w", errUsage)
	}
	addr, err := parsePHY(args[0])
	if err != nil {
		return err
	}
	reg, err := parseReg(args[1])
	if err != nil {
		return err
	}
	v, err := parseValue(args[2])
	if err != nil {
		return err
	}
	return bus.Write(addr, reg, v)
}

func cmdDump(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("dump PHY: %w", errUsage)
	}
	addr, err := parsePHY(args[0])
	if err != nil {
		return err
	}

	regs, err := miim.Dump(bus, addr)
	if err != nil {
		return err
	}
	for i, v := range regs {
		fmt.Fprintf(w, "0x%02x %-8s 0x%04x\n", i, miim.RegName(uint8(i)), v)
	}
	return nil
}

func cmdScan(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("scan: %w", errUsage)
	}
	addrs, err := miim.Scan(bus)
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		st, err := miim.ReadStatus(bus, addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "phy=%d id=0x%08x\n", addr, st.ID)
	}
	return nil
}

func cmdStatus(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("status PHY: %w", errUsage)
	}
	addr, err := parsePHY(args[0])
	if err != nil {
		return err
	}

	st, err := miim.ReadStatus(bus, addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%v\n", st)
	return nil
}

func cmdWatch(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	fset := flag.NewFlagSet("watch", flag.ContinueOnError)
	fset.SetOutput(w)
	freq := fset.Duration("freq", time.Second, "polling interval")
	err := fset.Parse(args)
	if err != nil {
		return err
	}
	if fset.NArg() != 1 {
		return fmt.Errorf("watch [-freq] PHY: %w", errUsage)
	}
	addr, err := parsePHY(fset.Arg(0))
	if err != nil {
		return err
	}

	grp, ctx := errgroup.WithContext(ctx)
	sts := make(chan miim.Status)

	grp.Go(func() error {
		defer close(sts)
		tick := time.NewTicker(*freq)
		defer tick.Stop()
		for {
			st, err := miim.ReadStatus(bus, addr)
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case sts <- st:
			}
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
			}
		}
	})

	grp.Go(func() error {
		var prev *miim.Status
		for st := range sts {
			if prev != nil && prev.Link == st.Link && prev.Mode == st.Mode {
				continue
			}
			fmt.Fprintf(w, "%s %v\n", time.Now().UTC().Format("2006-01-02 15:04:05"), st)
			prev = &st
		}
		return nil
	})

	return grp.Wait()
}
