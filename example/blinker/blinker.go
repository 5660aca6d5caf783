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

	"github.com/warthog618/adcmon"
	"github.com/warthog618/adcmon/sim"
)

// This example blinks the status LED, PORTB bit 6, from the Timer1 overflow
// interrupt of a simulated part.
// The timer is clocked at clk/1024 and reloaded for a 0.5s period, so the
// LED toggles at 1Hz with a 50% duty cycle.
func main() {
	regs := adcmon.New()
	ctrl := adcmon.NewController(regs)
	defer ctrl.Close()
	m := sim.New(regs, ctrl, sim.Constant(0), io.Discard)

	cfg := adcmon.DefaultConfig()
	cfg.TCCR1B = 5
	cfg.Reload = 0x10000 - 7812
	adcmon.Init(regs, cfg)

	led := adcmon.NewIndicator(regs)
	timer := adcmon.NewTimer1(regs, cfg.Reload)
	err := ctrl.Register(adcmon.VectorTimer1Ovf, func() {
		led.Toggle()
		timer.Reload()
		fmt.Println("Toggled", led.Level())
	})
	if err != nil {
		panic(err)
	}
	ctrl.Enable()

	// capture exit signals to ensure the simulation is stopped on exit.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	fmt.Println("Blinking every", cfg.TickPeriod())
	m.Run(ctx, 1, 0)
	ctrl.Disable()
	fmt.Fprintln(os.Stderr, "ticks:", m.Stats().Overflows)
}
