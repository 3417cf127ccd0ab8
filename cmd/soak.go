// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Test bus link stability",
	Long: `Hold the bus link open without transmitting, and report traffic once a second.

Useful for debugging adapter or gateway stability before running the dashboard.
The link is judged unstable when it drops, or when the adapter reports errors or
the receive queue overflows.

Exit codes:
  0 - Test completed normally
  1 - Link dropped or reported errors
  2 - Connection error`,
	RunE: runSoak,
}

var soakDuration int

func init() {
	rootCmd.AddCommand(soakCmd)
	soakCmd.Flags().IntVar(&soakDuration, "duration", 30, "Test duration in seconds")
}

func runSoak(cmd *cobra.Command, args []string) error {
	bus, err := OpenBus(cmd.Context(), log.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer bus.Close()

	fmt.Printf("Bus Link Stability Test\n")
	fmt.Printf("Connection: %s\n", bus.Info())
	fmt.Printf("Duration: %d seconds\n\n", soakDuration)

	start := time.Now()
	endTime := start.Add(time.Duration(soakDuration) * time.Second)
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	var frames, lastFrames uint64
	ids := make(map[uint32]struct{})

	results := func() {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %s\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Frames received: %d\n", frames)
		fmt.Printf("Distinct ids: %d\n", len(ids))
		fmt.Printf("Adapter errors: %d\n", bus.DecodeErrors())
		fmt.Printf("Receive overruns: %d\n", bus.RxOverruns())
	}

	for time.Now().Before(endTime) {
		select {
		case f, ok := <-bus.Frames():
			if !ok {
				fmt.Printf("\n[%s] Connection lost\n", time.Now().Format("15:04:05.000"))
				results()
				fmt.Printf("Result: FAILED (connection lost)\n")
				os.Exit(1)
			}
			frames++
			ids[f.ID] = struct{}{}

		case <-heartbeat.C:
			remaining := time.Until(endTime).Seconds()
			fmt.Printf("[%s] %d frames/s, %d ids (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), frames-lastFrames, len(ids), remaining)
			lastFrames = frames
		}
	}

	results()
	if bus.DecodeErrors() > 0 || bus.RxOverruns() > 0 {
		fmt.Printf("Result: FAILED (link errors)\n")
		os.Exit(1)
	}
	fmt.Printf("Result: PASSED (link stable)\n")
	return nil
}
