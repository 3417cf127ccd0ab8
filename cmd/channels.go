// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var channelsBusID string

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Print the decoded channel table",
	Long: `Print every channel the dashboard decodes: where it sits in the ECU broadcast,
its scaling and its canonical unit. Use --id to show one broadcast id.`,
	RunE: runChannels,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	channelsCmd.Flags().StringVar(&channelsBusID, "id", "", "Only show channels carried by this bus id (e.g. 0x360)")
}

// channelRows formats signals for printing, optionally limited to one bus id.
func channelRows(signals []haltech.Signal, busID uint32, filter bool) [][]string {
	rows := make([][]string, 0, len(signals))
	for _, sig := range signals {
		if filter && sig.BusID != busID {
			continue
		}
		signed := ""
		if sig.Signed {
			signed = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(int(sig.ID)),
			sig.Name,
			sig.ShortName,
			fmt.Sprintf("0x%03X", sig.BusID),
			fmt.Sprintf("%d-%d", sig.StartByte, sig.EndByte),
			signed,
			sig.Unit.String(),
			strconv.FormatFloat(float64(sig.Scale), 'g', -1, 32),
			strconv.FormatFloat(float64(sig.Offset), 'g', -1, 32),
			fmt.Sprintf("%d ms", sig.PeriodMs),
		})
	}
	return rows
}

func runChannels(cmd *cobra.Command, args []string) error {
	var busID uint64
	filter := channelsBusID != ""
	if filter {
		var err error
		busID, err = strconv.ParseUint(channelsBusID, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid --id %q: %w", channelsBusID, err)
		}
	}

	rows := channelRows(haltech.Signals(), uint32(busID), filter)
	if len(rows) == 0 {
		return fmt.Errorf("no channels on bus id 0x%03X", busID)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(headerStyle).
		Headers("#", "Name", "Short", "ID", "Bytes", "Signed", "Unit", "Scale", "Offset", "Period").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return statsLabelStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	fmt.Fprintln(cmd.OutOrStdout(), t)
	fmt.Fprintf(cmd.OutOrStdout(), "%d channels\n", len(rows))
	return nil
}
