// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build avr

// firmware is the device image. It samples the configured ADC channel on
// every Timer1 tick and sends each sample over USART0 as a carriage return
// terminated decimal record.
//
// Build with tinygo:
//
//	tinygo flash -target arduino ./cmd/firmware
package main

import (
	"context"
	"device/avr"
	"runtime/interrupt"

	"github.com/warthog618/adcmon"
)

var acq *adcmon.Acquirer

func main() {
	hw := adcmon.Hardware{}
	cfg := adcmon.DefaultConfig()
	adcmon.Init(hw, cfg)
	acq = adcmon.NewAcquirer(hw, cfg)

	interrupt.New(avr.IRQ_TIMER1_OVF, timerTick).Enable()
	interrupt.New(avr.IRQ_ADC, conversionComplete).Enable()
	avr.Asm("sei")

	// only returns on a transmit or conversion timeout, so start over
	for {
		acq.Run(context.Background())
	}
}

func timerTick(interrupt.Interrupt) {
	acq.TimerTick()
}

func conversionComplete(interrupt.Interrupt) {
	acq.ConversionComplete()
}
