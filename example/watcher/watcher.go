// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warthog618/adcmon"
	"github.com/warthog618/adcmon/monitor"
	"github.com/warthog618/adcmon/sim"
)

// Runs the firmware against a simulated ramp on ADC5 and watches the serial
// stream it produces, reporting each sample as it is decoded.
func main() {
	regs := adcmon.New()
	ctrl := adcmon.NewController(regs)
	defer ctrl.Close()

	pr, pw := io.Pipe()
	m := sim.New(regs, ctrl, sim.NewRamp(0, 31), pw)
	cfg := adcmon.DefaultConfig()
	adcmon.Init(regs, cfg)
	acq := adcmon.NewAcquirer(regs, cfg)
	if err := ctrl.Register(adcmon.VectorTimer1Ovf, acq.TimerTick); err != nil {
		panic(err)
	}
	if err := ctrl.Register(adcmon.VectorADC, acq.ConversionComplete); err != nil {
		panic(err)
	}
	ctrl.Enable()

	// capture exit signals to ensure resources are released on exit.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	// But we'll just run for a few seconds then exit.
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	go m.Run(ctx, 1, 0)
	go func() {
		err := acq.Run(ctx)
		pw.CloseWithError(err)
	}()

	fmt.Println("Watching ADC5...")
	s := monitor.NewScanner(pr)
	for s.Scan() {
		if err := s.Err(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Printf("ADC5 is %4d\n", s.Sample())
	}
	fmt.Println(acq.Stats().Cycles, "samples")
}
