// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/warthog618/adcmon"
)

func init() {
	encodeCmd.Flags().BoolVarP(&encodeOpts.Hex, "hex", "x", false, "also display the encoded bytes in hex")
	rootCmd.AddCommand(encodeCmd)
}

var (
	encodeCmd = &cobra.Command{
		Use:     "encode <value1>...",
		Short:   "Display the serial encoding of a sample or samples",
		Args:    cobra.MinimumNArgs(1),
		RunE:    encode,
		Example: "  adcmon encode 0 512 65535",
	}
	encodeOpts = struct {
		Hex bool
	}{}
)

func encode(cmd *cobra.Command, args []string) error {
	vv := []uint16(nil)
	for _, arg := range args {
		v, err := parseSample(arg)
		if err != nil {
			return err
		}
		vv = append(vv, v)
	}
	for _, v := range vv {
		d, n := adcmon.Encode(v)
		rec := append(d[:n:n], '\r')
		if encodeOpts.Hex {
			fmt.Fprintf(cmd.OutOrStdout(), "%5d: %q (%d) % x\n", v, rec, n, rec)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%5d: %q (%d)\n", v, rec, n)
		}
	}
	return nil
}

func parseSample(arg string) (uint16, error) {
	v, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("can't parse sample '%s'", arg)
	}
	return uint16(v), nil
}
