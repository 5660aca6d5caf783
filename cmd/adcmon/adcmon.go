// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/warthog618/adcmon"
	"github.com/warthog618/adcmon/profile"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
)

var version = "undefined"

var rootCmd = &cobra.Command{
	Use:   "adcmon",
	Short: "adcmon runs and monitors the ADC sampling firmware",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringP("config-file", "c", "", "read settings from a JSON config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig builds the settings for a command.
//
// Settings are taken, in order of priority, from flags explicitly set on
// the command line, ADCMON_ environment variables, the config file, then
// defaults. Flag names map to keys with dashes replaced by dots, so
// --ready-timeout and ADCMON_READY_TIMEOUT both set "ready.timeout".
func loadConfig(cmd *cobra.Command, defaults map[string]interface{}) *config.Config {
	flags := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		flags[flagKey(f.Name)] = f.Value.String()
	})
	cfg := config.New(
		dict.New(dict.WithMap(nest(flags))),
		env.New(env.WithEnvPrefix("ADCMON_")),
		config.WithDefault(dict.New(dict.WithMap(nest(defaults)))))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "adcmon.json", json.NewDecoder()))
	return cfg.GetConfig("", config.WithMust)
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", ".")
}

// nest converts dotted keys into the nested maps the dict getter walks.
func nest(flat map[string]interface{}) map[string]interface{} {
	n := make(map[string]interface{})
	for k, v := range flat {
		path := strings.Split(k, ".")
		m := n
		for _, p := range path[:len(path)-1] {
			sub, ok := m[p].(map[string]interface{})
			if !ok {
				sub = make(map[string]interface{})
				m[p] = sub
			}
			m = sub
		}
		m[path[len(path)-1]] = v
	}
	return n
}

// loadProfile returns the peripheral setup from the named profile, or the
// default setup if name is empty.
func loadProfile(name string) (adcmon.Config, error) {
	if name == "" {
		return adcmon.DefaultConfig(), nil
	}
	return profile.Load(name)
}
