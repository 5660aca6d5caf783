// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/adcmon/monitor"
)

func init() {
	listenCmd.Flags().StringP("port", "P", "", "serial port connected to the device")
	listenCmd.Flags().IntP("baud", "b", monitor.DefaultBaudRate, "serial baud rate")
	listenCmd.Flags().UintP("num-samples", "n", 0, "exit after n samples")
	listenCmd.Flags().BoolP("quiet", "q", false, "don't display samples")
	listenCmd.Flags().BoolP("list", "l", false, "list the available serial ports and exit")
	listenCmd.SetHelpTemplate(listenCmd.HelpTemplate() + extendedListenHelp)
	rootCmd.AddCommand(listenCmd)
}

var extendedListenHelp = `
Reads the carriage return terminated decimal samples sent by the device and
prints them to standard output. Malformed records are reported on exit.
`

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Display samples received from a device",
	Args:  cobra.NoArgs,
	RunE:  listen,
}

var listenDefaults = map[string]interface{}{
	"port":        "",
	"baud":        monitor.DefaultBaudRate,
	"num.samples": 0,
	"quiet":       false,
	"list":        false,
}

func listen(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, listenDefaults)
	if cfg.MustGet("list").Bool() {
		ports, err := monitor.Ports()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	}
	name := cfg.MustGet("port").String()
	if name == "" {
		return fmt.Errorf("no serial port specified")
	}
	port, err := monitor.Open(name, int(cfg.MustGet("baud").Int()), 0)
	if err != nil {
		return err
	}
	count := listenWait(port.Samples(), uint(cfg.MustGet("num.samples").Uint()), cfg.MustGet("quiet").Bool())
	err = port.Close()
	malformed, dropped := port.Errors()
	fmt.Fprintf(os.Stderr, "samples: %d, malformed: %d, dropped: %d\n", count, malformed, dropped)
	return err
}

func listenWait(samples <-chan monitor.Record, limit uint, quiet bool) uint {
	sigdone := make(chan os.Signal, 1)
	signal.Notify(sigdone, os.Interrupt)
	defer signal.Stop(sigdone)
	count := uint(0)
	for {
		select {
		case rec, ok := <-samples:
			if !ok {
				return count
			}
			if !quiet {
				fmt.Printf("sample:%6d %s\n", rec.Sample, rec.Time.Format(time.RFC3339Nano))
			}
			count++
			if limit > 0 && count >= limit {
				return count
			}
		case <-sigdone:
			return count
		}
	}
}
