// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mac

import (
	"context"
	"fmt"
	"time"
)

// BusyWaitFunc is called each time the busy bit of the MIIM address
// register is found set. A non-nil error aborts the transaction.
//
// A nil BusyWaitFunc busy-waits without bound: a PHY or bus that never
// completes the transaction hangs the caller.
type BusyWaitFunc func() error

// MaxPolls returns a BusyWaitFunc failing with ErrTimeout once the busy
// bit has been observed set more than n times.
func MaxPolls(n int) BusyWaitFunc {
	i := 0
	return func() error {
		i++
		if i > n {
			return fmt.Errorf("%w (polls=%d)", ErrTimeout, n)
		}
		return nil
	}
}

// Deadline returns a BusyWaitFunc failing with ErrTimeout once t has passed.
func Deadline(t time.Time) BusyWaitFunc {
	return func() error {
		if time.Now().After(t) {
			return ErrTimeout
		}
		return nil
	}
}

// Timeout returns a BusyWaitFunc failing with ErrTimeout once d has
// elapsed from now.
func Timeout(d time.Duration) BusyWaitFunc {
	return Deadline(time.Now().Add(d))
}

// ContextWait returns a BusyWaitFunc failing when ctx is done.
func ContextWait(ctx context.Context) BusyWaitFunc {
	return func() error {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		default:
			return nil
		}
	}
}

// Read performs a MIIM read transaction of register reg of the PHY at
// address phy, and returns the 16-bit value read.
//
// ar and dr are the MIIM address and data registers laid out as l.
// phy and reg are truncated to 5 bits; the hardware would do the same.
// Read returns an error only if wait aborted the transaction.
func Read(ar, dr Register, l *Layout, phy, reg uint8, wait BusyWaitFunc) (uint16, error) {
	ar.Set(l.encode(ar.Get(), phy, reg, l.OpRead))

	err := busyWait(ar, l, wait)
	if err != nil {
		return 0, err
	}

	return uint16(dr.Get() & 0xffff), nil
}

// Write performs a MIIM write transaction of data into register reg of
// the PHY at address phy.
//
// The data register is loaded before the transaction is started.
// phy and reg are truncated to 5 bits; the hardware would do the same.
// Write returns an error only if wait aborted the transaction.
func Write(ar, dr Register, l *Layout, phy, reg uint8, data uint16, wait BusyWaitFunc) error {
	dr.Set(uint32(data))
	ar.Set(l.encode(ar.Get(), phy, reg, l.OpWrite))

	return busyWait(ar, l, wait)
}

func busyWait(ar Register, l *Layout, wait BusyWaitFunc) error {
	for ar.Get()&l.Busy != 0 {
		if wait == nil {
			continue
		}
		err := wait()
		if err != nil {
			return err
		}
	}
	return nil
}
