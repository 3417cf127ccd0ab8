// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	"github.com/spf13/cobra"
)

var rawLogCSV bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw CAN frame log in human-readable format",
	Long: `Continuously display CAN frames as they arrive.

Each frame is shown with timestamp, its role on the bus (broadcast, keypad
query, keypad response, keep-alive, button status) and, for broadcast frames,
every channel it carries decoded to its canonical unit.

With --csv, frames are printed one per line as micros,id,len,"payload" for
capture to a file.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogCSV, "csv", false, "Print frames as CSV lines")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	bus, err := OpenBus(cmd.Context(), log.Default())
	if err != nil {
		return err
	}
	defer bus.Close()

	if rawLogCSV {
		fmt.Println("micros,can_id,len,payload")
	} else {
		fmt.Printf("NuclearDash - Raw Frame Log\n")
		fmt.Printf("Connection: %s\n", bus.Info())
		fmt.Printf("Press Ctrl+C to exit\n\n")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	table := haltech.NewDefaultTable()
	start := time.Now()

	for {
		select {
		case <-interrupt:
			return nil
		case f, ok := <-bus.Frames():
			if !ok {
				log.Printf("Connection closed")
				return nil
			}
			if err := f.Validate(); err != nil {
				fmt.Printf("[ERROR] %v: %v\n", f, err)
				continue
			}
			if rawLogCSV {
				fmt.Println(haltech.FormatCSVFrame(f, uint64(time.Since(start).Microseconds())))
				continue
			}
			fmt.Print(haltech.FormatFrame(f, table, time.Now()))
		}
	}
}
