// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/adcmon"
	"github.com/warthog618/adcmon/monitor"
	"github.com/warthog618/adcmon/sim"
	"go.bug.st/serial"
	"go.uber.org/multierr"
)

func init() {
	runCmd.Flags().StringP("source", "s", "constant", "analog source [constant|ramp]")
	runCmd.Flags().UintP("value", "v", 512, "constant level, or ramp start")
	runCmd.Flags().Uint("step", 1, "ramp step per conversion")
	runCmd.Flags().Float64("speed", 1, "simulation speed relative to real time, 0 for flat out")
	runCmd.Flags().Bool("free-run", false, "transmit continuously rather than once per conversion")
	runCmd.Flags().UintP("num-samples", "n", 0, "exit after n samples")
	runCmd.Flags().DurationP("duration", "d", 0, "exit after the duration")
	runCmd.Flags().StringP("profile", "p", "", "peripheral setup profile (YAML)")
	runCmd.Flags().Int("channel", -1, "ADC channel, overriding the profile")
	runCmd.Flags().String("regfile", "", "memory map the register file onto this file")
	runCmd.Flags().String("port", "", "forward the serial output to this serial port")
	runCmd.Flags().String("banner", "", "send a banner before the first sample")
	runCmd.Flags().Duration("ready-timeout", adcmon.DefaultReadyTimeout, "maximum wait for a conversion")
	runCmd.Flags().Duration("tx-timeout", adcmon.DefaultTxTimeout, "maximum wait for the transmitter")
	runCmd.Flags().BoolP("quiet", "q", false, "don't display samples")
	runCmd.SetHelpTemplate(runCmd.HelpTemplate() + extendedRunHelp)
	rootCmd.AddCommand(runCmd)
}

var extendedRunHelp = `
Runs the firmware core against simulated peripherals, reporting each sample
received from the simulated serial link.

Samples are either displayed, one per line, or forwarded verbatim to a real
serial port so the output can be checked by another host.
`

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the firmware against simulated peripherals",
	Args:  cobra.NoArgs,
	RunE:  run,
}

var runDefaults = map[string]interface{}{
	"source":        "constant",
	"value":         512,
	"step":          1,
	"speed":         1.0,
	"free.run":      false,
	"num.samples":   0,
	"duration":      "0s",
	"profile":       "",
	"channel":       -1,
	"regfile":       "",
	"port":          "",
	"banner":        "",
	"ready.timeout": adcmon.DefaultReadyTimeout.String(),
	"tx.timeout":    adcmon.DefaultTxTimeout.String(),
	"quiet":         false,
}

func run(cmd *cobra.Command, args []string) (err error) {
	cfg := loadConfig(cmd, runDefaults)
	hw, err := loadProfile(cfg.MustGet("profile").String())
	if err != nil {
		return err
	}
	src, err := newSource(
		cfg.MustGet("source").String(),
		uint16(cfg.MustGet("value").Uint()),
		uint16(cfg.MustGet("step").Uint()))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if d := cfg.MustGet("duration").Duration(); d > 0 {
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var regs *adcmon.Map
	if path := cfg.MustGet("regfile").String(); path != "" {
		if regs, err = adcmon.OpenFile(path); err != nil {
			return err
		}
	} else {
		regs = adcmon.New()
	}
	defer func() {
		err = multierr.Append(err, regs.Close())
	}()

	var out io.Writer
	if name := cfg.MustGet("port").String(); name != "" {
		port, perr := serial.Open(name, &serial.Mode{BaudRate: int(hw.BaudRate())})
		if perr != nil {
			return fmt.Errorf("failed to open serial port %s: %w", name, perr)
		}
		defer func() {
			err = multierr.Append(err, port.Close())
		}()
		out = port
	} else {
		out = newRecordPrinter(cmd.OutOrStdout(), cfg.MustGet("quiet").Bool(),
			uint(cfg.MustGet("num.samples").Uint()), cancel)
	}

	ctrl := adcmon.NewController(regs)
	defer ctrl.Close()
	m := sim.New(regs, ctrl, src, out, sim.WithClock(hw.Clock))
	adcmon.Init(regs, hw)
	if ch := cfg.MustGet("channel").Int(); ch >= 0 {
		if ch > int(adcmon.MUXMask) {
			return fmt.Errorf("invalid channel %d", ch)
		}
		adcmon.NewADC(regs).UseChannel(uint8(ch))
	}

	opts := []adcmon.Option{
		adcmon.WithReadyTimeout(cfg.MustGet("ready.timeout").Duration()),
		adcmon.WithTxTimeout(cfg.MustGet("tx.timeout").Duration()),
		adcmon.WithBanner(cfg.MustGet("banner").String()),
	}
	if cfg.MustGet("free.run").Bool() {
		opts = append(opts, adcmon.WithFreeRun())
	}
	acq := adcmon.NewAcquirer(regs, hw, opts...)
	if err = ctrl.Register(adcmon.VectorTimer1Ovf, acq.TimerTick); err != nil {
		return err
	}
	if err = ctrl.Register(adcmon.VectorADC, acq.ConversionComplete); err != nil {
		return err
	}
	ctrl.Enable()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Run(ctx, cfg.MustGet("speed").Float(), 0)
	}()
	err = acq.Run(ctx)
	cancel()
	wg.Wait()
	ctrl.Disable()

	s := acq.Stats()
	ms := m.Stats()
	fmt.Fprintf(os.Stderr, "ticks: %d, conversions: %d, samples: %d, bytes: %d, tick period: %v\n",
		s.Ticks, s.Completions, s.Cycles, ms.BytesSent, hw.TickPeriod())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return err
}

func newSource(name string, value, step uint16) (sim.Source, error) {
	switch name {
	case "constant":
		return sim.Constant(value), nil
	case "ramp":
		return sim.NewRamp(value, step), nil
	}
	return nil, fmt.Errorf("unknown source '%s'", name)
}

// recordPrinter displays the records written to it by the simulated
// USART, one sample per line.
type recordPrinter struct {
	w      io.Writer
	quiet  bool
	limit  uint
	count  uint
	stop   func()
	record []byte
}

func newRecordPrinter(w io.Writer, quiet bool, limit uint, stop func()) *recordPrinter {
	return &recordPrinter{w: w, quiet: quiet, limit: limit, stop: stop}
}

func (p *recordPrinter) Write(b []byte) (int, error) {
	for _, c := range b {
		if p.limit > 0 && p.count >= p.limit {
			// stopping, so drop any trailing output
			break
		}
		if c != '\r' {
			p.record = append(p.record, c)
			continue
		}
		v, err := monitor.ParseRecord(p.record)
		if err != nil {
			// the banner, or garbage
			if !p.quiet {
				fmt.Fprintf(p.w, "text: %q\n", p.record)
			}
			p.record = p.record[:0]
			continue
		}
		p.record = p.record[:0]
		p.count++
		if !p.quiet {
			fmt.Fprintf(p.w, "sample:%6d %s\n", v, time.Now().Format(time.RFC3339Nano))
		}
		if p.limit > 0 && p.count >= p.limit {
			p.stop()
		}
	}
	return len(b), nil
}
