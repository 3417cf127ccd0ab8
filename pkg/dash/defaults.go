// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

import (
	"math"

	"github.com/SpencerGraffunder/NuclearDash/pkg/haltech"
)

// NumSlots is the number of buttons on the 4x4 grid.
const NumSlots = haltech.NumSlots

// Alert bounds that can never be crossed.
const (
	AlertDisabledMin = -math.MaxFloat32
	AlertDisabledMax = math.MaxFloat32
)

func defaultSlot(ch haltech.ChannelID, unit haltech.Unit, decimals uint8) SlotConfig {
	return SlotConfig{
		Channel:  ch,
		Unit:     unit,
		Decimals: decimals,
		Mode:     ModeMomentary,
		AlertMin: AlertDisabledMin,
		AlertMax: AlertDisabledMax,
	}
}

// DefaultLayout returns the compiled-in layout used on first boot and after a
// downgrade.
func DefaultLayout() [NumSlots]SlotConfig {
	l := [NumSlots]SlotConfig{
		defaultSlot(haltech.ChannelManifoldPressure, haltech.UnitPSI, 1),
		defaultSlot(haltech.ChannelRPM, haltech.UnitRPM, 0),
		defaultSlot(haltech.ChannelThrottlePosition, haltech.UnitPercent, 0),
		defaultSlot(haltech.ChannelCoolantTemperature, haltech.UnitFahrenheit, 0),
		defaultSlot(haltech.ChannelOilPressure, haltech.UnitPSI, 0),
		defaultSlot(haltech.ChannelOilTemperature, haltech.UnitFahrenheit, 0),
		defaultSlot(haltech.ChannelWidebandOverall, haltech.UnitLambda, 2),
		defaultSlot(haltech.ChannelAirTemperature, haltech.UnitFahrenheit, 0),
		defaultSlot(haltech.ChannelBoostControlOutput, haltech.UnitPercent, 0),
		defaultSlot(haltech.ChannelTargetBoostLevel, haltech.UnitPSI, 1),
		defaultSlot(haltech.ChannelECUTemperature, haltech.UnitCelsius, 0),
		defaultSlot(haltech.ChannelBatteryVoltage, haltech.UnitVolts, 1),
		defaultSlot(haltech.ChannelIntakeCamAngle1, haltech.UnitDegrees, 1),
		defaultSlot(haltech.ChannelVehicleSpeed, haltech.UnitMPH, 0),
		defaultSlot(haltech.ChannelTotalFuelUsed, haltech.UnitGallons, 2),
		defaultSlot(haltech.ChannelKnockLevel1, haltech.UnitDecibels, 1),
	}

	// coolant
	l[3].AlertMax = 220
	l[3].AlertBeep = true
	l[3].AlertFlash = true
	// oil pressure
	l[4].AlertMin = 10
	l[4].AlertFlash = true
	// battery
	l[11].AlertMin = 11.5
	l[11].AlertFlash = true

	return l
}
