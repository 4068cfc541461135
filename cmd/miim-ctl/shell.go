// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-lpc/ethmac/miim"
	"github.com/peterh/liner"
)

type prompter interface {
	Prompt(p string) (string, error)
	AppendHistory(item string)
}

func cmdShell(ctx context.Context, w io.Writer, bus miim.Bus, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("shell: %w", errUsage)
	}

	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(complete)

	return shell(ctx, w, bus, term)
}

func shell(ctx context.Context, w io.Writer, bus miim.Bus, term prompter) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := term.Prompt("miim> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(w)
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		term.AppendHistory(line)

		switch args[0] {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintf(w, "commands: %s, help, quit\nregisters: %s\n",
				cmdNames(), strings.Join(miim.RegNames(), ", "),
			)
			continue
		case "shell":
			fmt.Fprintf(w, "error: already in a shell\n")
			continue
		}

		err = run(ctx, w, bus, args)
		if err != nil {
			fmt.Fprintf(w, "error: %+v\n", err)
		}
	}
}

// complete completes command names, then register names.
func complete(line string) []string {
	var (
		args = strings.Fields(line)
		last = ""
	)
	if len(args) > 0 && !strings.HasSuffix(line, " ") {
		last = args[len(args)-1]
		args = args[:len(args)-1]
	}
	prefix := line[:len(line)-len(last)]

	var cands []string
	switch len(args) {
	case 0:
		for k := range cmds {
			if k == "shell" {
				continue
			}
			cands = append(cands, k)
		}
		cands = append(cands, "help", "quit")
	case 2:
		if args[0] == "read" || args[0] == "write" {
			cands = miim.RegNames()
		}
	}

	var o []string
	for _, c := range cands {
		if strings.HasPrefix(c, strings.ToUpper(last)) || strings.HasPrefix(c, last) {
			o = append(o, prefix+c)
		}
	}
	sort.Strings(o)
	return o
}
