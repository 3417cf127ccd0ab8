// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/SpencerGraffunder/NuclearDash/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int
	bitrate  int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath string
	storeDir   string

	// cfg is the merged configuration: file values, overridden by any flag the
	// user set explicitly.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "nucleardash",
	Short: "Haltech CAN dashboard and bus tool",
	Long: `NuclearDash - a dashboard for Haltech ECUs that joins the CAN bus as a keypad.

Decodes the ECU broadcast into named channels, shows them on a 4x4 grid of
buttons with per-button units and alerts, and reports button presses back to
the ECU the way a Haltech keypad does. The remaining commands help diagnose the
bus itself.

Connection modes:
  Serial (SLCAN): --port /dev/ttyACM0 [--baud 115200] [--bitrate 1000000]
  WebSocket:      --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the NUCLEARDASH_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port of the SLCAN adapter")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate (serial only)")
	rootCmd.PersistentFlags().IntVar(&bitrate, "bitrate", config.DefaultBitrate, "CAN bitrate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", config.DefaultStoreDir, "Directory holding the button layout")
}

// loadConfig reads --config when given, then lets explicit flags win.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Bus.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Bus.Baud = baudRate
	}
	if flags.Changed("bitrate") {
		cfg.Bus.Bitrate = bitrate
	}
	if flags.Changed("url") {
		cfg.Bus.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Bus.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Bus.Insecure = wsNoSSLVerify
	}
	if flags.Changed("store-dir") {
		cfg.Store.Dir = storeDir
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
