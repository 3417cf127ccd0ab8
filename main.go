// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// NuclearDash - Haltech CAN Dashboard
//
// A dashboard that joins a Haltech ECU's CAN bus as a keypad, shows decoded
// engine channels on a grid of configurable buttons and reports their presses
// back to the ECU.

package main

import (
	"os"

	"github.com/SpencerGraffunder/NuclearDash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
