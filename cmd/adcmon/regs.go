// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/warthog618/adcmon"
	"github.com/warthog618/adcmon/profile"
	"go.uber.org/multierr"
)

func init() {
	regsCmd.Flags().StringP("profile", "p", "", "peripheral setup profile (YAML)")
	regsCmd.Flags().String("regfile", "", "read the register file from this memory mapped file")
	regsCmd.Flags().BoolP("short", "s", false, "single line output format")
	regsCmd.Flags().Bool("yaml", false, "display the setup as a profile rather than registers")
	regsCmd.SetHelpTemplate(regsCmd.HelpTemplate() + extendedRegsHelp)
	rootCmd.AddCommand(regsCmd)
}

var extendedRegsHelp = `
Without --regfile, the registers are displayed as they are after the
one-time peripheral setup. With --regfile, the live register image is
displayed as is.
`

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "Display the peripheral registers",
	Args:  cobra.NoArgs,
	RunE:  regs,
}

var regsDefaults = map[string]interface{}{
	"profile": "",
	"regfile": "",
	"short":   false,
	"yaml":    false,
}

var regNames = []struct {
	name string
	reg  adcmon.Register
}{
	{"DDRB", adcmon.DDRB},
	{"PORTB", adcmon.PORTB},
	{"DDRD", adcmon.DDRD},
	{"PORTD", adcmon.PORTD},
	{"TIFR1", adcmon.TIFR1},
	{"EIMSK", adcmon.EIMSK},
	{"SREG", adcmon.SREG},
	{"EICRA", adcmon.EICRA},
	{"TIMSK1", adcmon.TIMSK1},
	{"ADCL", adcmon.ADCL},
	{"ADCH", adcmon.ADCH},
	{"ADCSRA", adcmon.ADCSRA},
	{"ADMUX", adcmon.ADMUX},
	{"DIDR0", adcmon.DIDR0},
	{"TCCR1A", adcmon.TCCR1A},
	{"TCCR1B", adcmon.TCCR1B},
	{"TCNT1L", adcmon.TCNT1L},
	{"TCNT1H", adcmon.TCNT1H},
	{"UCSR0A", adcmon.UCSR0A},
	{"UCSR0B", adcmon.UCSR0B},
	{"UCSR0C", adcmon.UCSR0C},
	{"UBRR0L", adcmon.UBRR0L},
	{"UBRR0H", adcmon.UBRR0H},
	{"UDR0", adcmon.UDR0},
}

func regs(cmd *cobra.Command, args []string) (err error) {
	cfg := loadConfig(cmd, regsDefaults)
	w := cmd.OutOrStdout()
	if cfg.MustGet("yaml").Bool() {
		return printProfile(w, cfg.MustGet("profile").String())
	}
	var m *adcmon.Map
	if path := cfg.MustGet("regfile").String(); path != "" {
		if m, err = adcmon.OpenFile(path); err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, m.Close())
		}()
	} else {
		hw, perr := loadProfile(cfg.MustGet("profile").String())
		if perr != nil {
			return perr
		}
		m = adcmon.New()
		adcmon.Init(m, hw)
		fmt.Fprintf(w, "tick: %v, baud: %d, channel: %d\n", hw.TickPeriod(), hw.BaudRate(), hw.Channel())
	}
	snap := m.Snapshot()
	if cfg.MustGet("short").Bool() {
		for i, r := range regNames {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%02x", snap[r.reg])
		}
		fmt.Fprintln(w)
		return nil
	}
	for _, r := range regNames {
		fmt.Fprintf(w, "%-7s 0x%02x: 0x%02x %08b\n", r.name, r.reg, snap[r.reg], snap[r.reg])
	}
	return nil
}

func printProfile(w io.Writer, path string) error {
	p := profile.Default()
	if path != "" {
		var err error
		if p, err = profile.Read(path); err != nil {
			return err
		}
	}
	y, err := p.Marshal()
	if err != nil {
		return err
	}
	_, err = w.Write(y)
	return err
}
