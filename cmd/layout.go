// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/SpencerGraffunder/NuclearDash/pkg/dash"
	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var layoutReset bool

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the stored button layout",
	Long: `Print the 16-slot layout stored in --store-dir. A missing or unreadable
layout is replaced with the defaults, as the dashboard does at start-up.

Use --reset to overwrite the stored layout with the defaults.`,
	RunE: runLayout,
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.Flags().BoolVar(&layoutReset, "reset", false, "Write the default layout")
}

func formatLimit(v float32, decimals uint8) string {
	if alertDisabled(v) {
		return "off"
	}
	return haltech.FormatValue(v, decimals)
}

// layoutRows formats a layout for printing.
func layoutRows(cfgs [dash.NumSlots]dash.SlotConfig) [][]string {
	signals := make(map[haltech.ChannelID]haltech.Signal)
	for _, sig := range haltech.Signals() {
		signals[sig.ID] = sig
	}

	rows := make([][]string, 0, len(cfgs))
	for i, c := range cfgs {
		name := fmt.Sprintf("channel %d", c.Channel)
		if sig, ok := signals[c.Channel]; ok {
			name = sig.Name
		}
		var alerts string
		if c.AlertBeep {
			alerts = "beep"
		}
		if c.AlertFlash {
			if alerts != "" {
				alerts += "+"
			}
			alerts += "flash"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			name,
			c.Unit.String(),
			strconv.Itoa(int(c.Decimals)),
			c.Mode.String(),
			formatLimit(c.AlertMin, c.Decimals),
			formatLimit(c.AlertMax, c.Decimals),
			alerts,
		})
	}
	return rows
}

func runLayout(cmd *cobra.Command, args []string) error {
	store := dash.NewStore(dash.DirStorage{Dir: cfg.Store.Dir}, log.Default())
	out := cmd.OutOrStdout()

	var cfgs [dash.NumSlots]dash.SlotConfig
	if layoutReset {
		cfgs = dash.DefaultLayout()
		if err := store.Save(cfgs); err != nil {
			return fmt.Errorf("reset layout: %w", err)
		}
		fmt.Fprintf(out, "Default layout written to %s\n", cfg.Store.Dir)
	} else {
		r := dash.NewRuntime(haltech.NewDefaultTable(), nil, nil, nil)
		res, err := store.Load(r)
		if err != nil {
			return fmt.Errorf("load layout: %w", err)
		}
		cfgs = r.Configs()
		fmt.Fprintf(out, "Layout from %s (%s)\n", cfg.Store.Dir, res)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(headerStyle).
		Headers("Slot", "Channel", "Unit", "Dec", "Mode", "Alert min", "Alert max", "On alert").
		Rows(layoutRows(cfgs)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return statsLabelStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(out, t)
	return nil
}
