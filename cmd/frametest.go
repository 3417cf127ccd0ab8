// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	"github.com/spf13/cobra"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid CAN frame",
	Long: `Wait for a valid CAN frame on the connection until timeout.

This command connects to the SLCAN adapter or WebSocket gateway and waits for
any valid CAN frame. Malformed adapter output is ignored.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking adapter wiring and bitrate before starting the dash.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	bus, err := OpenBus(cmd.Context(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer bus.Close()

	fmt.Printf("NuclearDash - Frame Test\n")
	fmt.Printf("Connection: %s\n", bus.Info())
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid CAN frame...\n\n")

	table := haltech.NewDefaultTable()
	timeout := time.After(time.Duration(frameTestTimeout) * time.Second)

	for {
		select {
		case f, ok := <-bus.Frames():
			if !ok {
				fmt.Fprintf(os.Stderr, "Read error: %v\n", ErrConnectionClosed)
				os.Exit(2)
			}
			if f.Validate() != nil {
				continue
			}
			if skipped := bus.DecodeErrors(); skipped > 0 {
				fmt.Printf("(skipped %d malformed lines before first frame)\n", skipped)
			}
			fmt.Printf("SUCCESS: Received valid frame\n")
			fmt.Printf("  ID: 0x%03X (%s)\n", f.ID, haltech.FormatFrameName(f.ID, table))
			fmt.Printf("  Length: %d bytes\n", f.Len)
			fmt.Printf("  Data: % X\n", f.Payload())
			os.Exit(0)

		case <-timeout:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
			os.Exit(1)
		}
	}
}
