// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	"github.com/spf13/cobra"
)

var (
	probeTimeout int
)

// ErrTimeout is returned when a bus exchange gets no answer in time.
var ErrTimeout = errors.New("timed out")

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Query a keypad on the bus for its identity",
	Long: `Send the identity queries the ECU uses to enumerate a keypad and print the
answers.

Queries are sent to 0x60C one at a time; the matching answer is expected on
0x58C. Each answer is compared against the table this tool itself answers with,
so probing a real keypad verifies the table and probing another NuclearDash
verifies the bus path.

Queries:
  0x1018 sub 1..4   vendor id, product code, revision, serial number
  0x1800 sub 1      TPDO1 COB-ID

Exit codes:
  0 - Every query was answered
  1 - At least one query timed out
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 2, "Timeout in seconds per query")
}

func runProbe(cmd *cobra.Command, args []string) error {
	bus, err := OpenBus(cmd.Context(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer bus.Close()

	fmt.Printf("NuclearDash - Keypad Probe\n")
	fmt.Printf("Connection: %s\n", bus.Info())
	fmt.Printf("Timeout: %d seconds per query\n\n", probeTimeout)

	answered := 0
	for _, q := range haltech.IdentityQueries {
		query := haltech.NewKeypadQuery(q.Index, q.Sub)
		fmt.Printf("0x%04X.%d  -> % X\n", q.Index, q.Sub, query.Payload())

		if err := bus.Send(query); err != nil {
			fmt.Printf("  SEND FAILED: %v\n", err)
			os.Exit(2)
		}

		resp, err := awaitKeypadResponse(bus, query, time.Duration(probeTimeout)*time.Second)
		if err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}
		answered++

		want, _ := haltech.KeypadResponse(query.Data)
		verdict := "MATCH"
		if resp.Data != want {
			verdict = fmt.Sprintf("DIFF (table has % X)", want)
		}
		fmt.Printf("  <- % X  %s\n", resp.Payload(), verdict)
	}

	fmt.Printf("\n%d/%d queries answered\n", answered, len(haltech.IdentityQueries))
	if answered != len(haltech.IdentityQueries) {
		os.Exit(1)
	}
	return nil
}

// awaitKeypadResponse waits for a response on the keypad response id that
// echoes the query's index and sub-index.
func awaitKeypadResponse(bus *CANBus, query haltech.Frame, timeout time.Duration) (haltech.Frame, error) {
	deadline := time.After(timeout)
	for {
		select {
		case f, ok := <-bus.Frames():
			if !ok {
				return haltech.Frame{}, ErrConnectionClosed
			}
			if f.ID != haltech.KeypadResponseID || f.Len < 4 {
				continue
			}
			if f.Data[1] == query.Data[1] && f.Data[2] == query.Data[2] && f.Data[3] == query.Data[3] {
				return f, nil
			}
		case <-deadline:
			return haltech.Frame{}, fmt.Errorf("no answer: %w", ErrTimeout)
		}
	}
}
