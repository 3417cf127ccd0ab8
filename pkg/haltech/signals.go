// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

// ChannelID indexes the signal table. Values are persisted in the slot layout,
// so new channels are appended and existing ones are never renumbered.
type ChannelID uint16

const (
	ChannelRPM ChannelID = iota
	ChannelManifoldPressure
	ChannelThrottlePosition
	ChannelCoolantPressure
	ChannelFuelPressure
	ChannelOilPressure
	ChannelEngineDemand
	ChannelWastegatePressure
	ChannelInjStage1Duty
	ChannelInjStage2Duty
	ChannelIgnitionAngle
	ChannelWheelSlip
	ChannelWheelDiff
	ChannelLaunchControlEndRPM
	ChannelInj1AvgTime
	ChannelInj2AvgTime
	ChannelInj3AvgTime
	ChannelInj4AvgTime
	ChannelWideband1
	ChannelWideband2
	ChannelWideband3
	ChannelWideband4
	ChannelTriggerErrorCount
	ChannelTriggerCounter
	ChannelTriggerSyncLevel
	ChannelKnockLevel1
	ChannelKnockLevel2
	ChannelBrakePressureFront
	ChannelNOSPressure1
	ChannelTurboSpeed1
	ChannelLateralG
	ChannelWheelSpeedFL
	ChannelWheelSpeedFR
	ChannelWheelSpeedRL
	ChannelWheelSpeedRR
	ChannelExhaustCamAngle1
	ChannelExhaustCamAngle2
	ChannelEngineLimitActive
	ChannelLaunchIgnRetard
	ChannelLaunchFuelEnrich
	ChannelLongitudinalG
	ChannelGenericOutput1Duty
	ChannelBoostControlOutput
	ChannelVehicleSpeed
	ChannelIntakeCamAngle1
	ChannelIntakeCamAngle2
	ChannelFuelFlow
	ChannelFuelFlowReturn
	ChannelBatteryVoltage
	ChannelTargetBoostLevel
	ChannelBaroPressure
	ChannelEGT1
	ChannelEGT2
	ChannelCoolantTemperature
	ChannelAirTemperature
	ChannelFuelTemperature
	ChannelOilTemperature
	ChannelGearboxOilTemperature
	ChannelDiffOilTemperature
	ChannelFuelComposition
	ChannelFuelLevel
	ChannelFuelTrimShortTerm1
	ChannelFuelTrimShortTerm2
	ChannelFuelTrimLongTerm1
	ChannelFuelTrimLongTerm2
	ChannelRaceTimer
	ChannelIgnitionAngleBank1
	ChannelIgnitionAngleBank2
	ChannelECUTemperature
	ChannelWidebandOverall
	ChannelWidebandBank1
	ChannelWidebandBank2
	ChannelGearSelectorPosition
	ChannelGear
	ChannelTotalFuelUsed

	numChannels
)

// Signal describes where a channel lives on the bus and how its raw integer
// becomes a value in the canonical unit.
type Signal struct {
	ID        ChannelID
	Name      string
	ShortName string
	BusID     uint32
	StartByte uint8 // inclusive, big-endian
	EndByte   uint8 // inclusive
	Signed    bool
	Unit      Unit // canonical
	Scale     float32
	Offset    float32
	PeriodMs  uint32 // expected broadcast period
}

// Width returns the number of payload bytes the signal spans.
func (s Signal) Width() int {
	return int(s.EndByte) - int(s.StartByte) + 1
}

// Broadcast rates of the ECU, expressed as periods.
const (
	period50Hz = 20
	period20Hz = 50
	period5Hz  = 200
)

// Gauge pressures are broadcast as absolute with a fixed offset.
const gaugeOffset = -101.3

var haltechSignals = []Signal{
	// 0x360
	{ChannelRPM, "RPM", "RPM", 0x360, 0, 1, false, UnitRPM, 1, 0, period50Hz},
	{ChannelManifoldPressure, "Manifold Pressure", "MAP", 0x360, 2, 3, false, UnitKPaAbs, 0.1, 0, period50Hz},
	{ChannelThrottlePosition, "Throttle Position", "TPS", 0x360, 4, 5, false, UnitPercent, 0.1, 0, period50Hz},
	{ChannelCoolantPressure, "Coolant Pressure", "Cool P", 0x360, 6, 7, false, UnitKPa, 0.1, gaugeOffset, period50Hz},

	// 0x361
	{ChannelFuelPressure, "Fuel Pressure", "Fuel P", 0x361, 0, 1, false, UnitKPa, 0.1, gaugeOffset, period50Hz},
	{ChannelOilPressure, "Oil Pressure", "Oil P", 0x361, 2, 3, false, UnitKPa, 0.1, gaugeOffset, period50Hz},
	{ChannelEngineDemand, "Engine Demand", "Demand", 0x361, 4, 5, false, UnitPercent, 0.1, 0, period50Hz},
	{ChannelWastegatePressure, "Wastegate Pressure", "WG P", 0x361, 6, 7, false, UnitKPa, 0.1, gaugeOffset, period50Hz},

	// 0x362
	{ChannelInjStage1Duty, "Injection Stage 1 Duty Cycle", "Inj1 DC", 0x362, 0, 1, false, UnitPercent, 0.1, 0, period50Hz},
	{ChannelInjStage2Duty, "Injection Stage 2 Duty Cycle", "Inj2 DC", 0x362, 2, 3, false, UnitPercent, 0.1, 0, period50Hz},
	{ChannelIgnitionAngle, "Ignition Angle (Leading)", "Ign", 0x362, 4, 5, true, UnitDegrees, 0.1, 0, period50Hz},

	// 0x363
	{ChannelWheelSlip, "Wheel Slip", "Slip", 0x363, 0, 1, true, UnitKPH, 0.1, 0, period50Hz},
	{ChannelWheelDiff, "Wheel Diff", "W Diff", 0x363, 2, 3, true, UnitKPH, 0.1, 0, period50Hz},
	{ChannelLaunchControlEndRPM, "Launch Control End RPM", "LC RPM", 0x363, 6, 7, false, UnitRPM, 1, 0, period50Hz},

	// 0x364
	{ChannelInj1AvgTime, "Injector Stage 1 Average Time", "Inj1 T", 0x364, 0, 1, false, UnitMilliseconds, 0.001, 0, period50Hz},
	{ChannelInj2AvgTime, "Injector Stage 2 Average Time", "Inj2 T", 0x364, 2, 3, false, UnitMilliseconds, 0.001, 0, period50Hz},
	{ChannelInj3AvgTime, "Injector Stage 3 Average Time", "Inj3 T", 0x364, 4, 5, false, UnitMilliseconds, 0.001, 0, period50Hz},
	{ChannelInj4AvgTime, "Injector Stage 4 Average Time", "Inj4 T", 0x364, 6, 7, false, UnitMilliseconds, 0.001, 0, period50Hz},

	// 0x368
	{ChannelWideband1, "Wideband Sensor 1", "WB1", 0x368, 0, 1, false, UnitLambda, 0.001, 0, period50Hz},
	{ChannelWideband2, "Wideband Sensor 2", "WB2", 0x368, 2, 3, false, UnitLambda, 0.001, 0, period50Hz},
	{ChannelWideband3, "Wideband Sensor 3", "WB3", 0x368, 4, 5, false, UnitLambda, 0.001, 0, period50Hz},
	{ChannelWideband4, "Wideband Sensor 4", "WB4", 0x368, 6, 7, false, UnitLambda, 0.001, 0, period50Hz},

	// 0x369
	{ChannelTriggerErrorCount, "Trigger System Error Count", "Trig Err", 0x369, 0, 1, false, UnitRaw, 1, 0, period50Hz},
	{ChannelTriggerCounter, "Trigger Counter", "Trig Cnt", 0x369, 2, 3, false, UnitRaw, 1, 0, period50Hz},
	{ChannelTriggerSyncLevel, "Trigger Sync Level", "Sync", 0x369, 6, 7, false, UnitRaw, 1, 0, period50Hz},

	// 0x36A
	{ChannelKnockLevel1, "Knock Level 1", "Knock1", 0x36A, 0, 1, false, UnitDecibels, 0.01, 0, period50Hz},
	{ChannelKnockLevel2, "Knock Level 2", "Knock2", 0x36A, 2, 3, false, UnitDecibels, 0.01, 0, period50Hz},

	// 0x36B
	{ChannelBrakePressureFront, "Brake Pressure Front", "Brake F", 0x36B, 0, 1, false, UnitKPa, 1, 0, period50Hz},
	{ChannelNOSPressure1, "NOS Pressure Sensor 1", "NOS P", 0x36B, 2, 3, false, UnitKPa, 0.22, gaugeOffset, period50Hz},
	{ChannelTurboSpeed1, "Turbo Speed Sensor 1", "Turbo", 0x36B, 4, 5, false, UnitRPM, 10, 0, period50Hz},
	{ChannelLateralG, "Lateral G", "Lat G", 0x36B, 6, 7, true, UnitMPS2, 0.1, 0, period50Hz},

	// 0x36C
	{ChannelWheelSpeedFL, "Wheel Speed Front Left", "WS FL", 0x36C, 0, 1, false, UnitKPH, 0.1, 0, period50Hz},
	{ChannelWheelSpeedFR, "Wheel Speed Front Right", "WS FR", 0x36C, 2, 3, false, UnitKPH, 0.1, 0, period50Hz},
	{ChannelWheelSpeedRL, "Wheel Speed Rear Left", "WS RL", 0x36C, 4, 5, false, UnitKPH, 0.1, 0, period50Hz},
	{ChannelWheelSpeedRR, "Wheel Speed Rear Right", "WS RR", 0x36C, 6, 7, false, UnitKPH, 0.1, 0, period50Hz},

	// 0x36D
	{ChannelExhaustCamAngle1, "Exhaust Cam Angle 1", "Ex Cam1", 0x36D, 0, 1, true, UnitDegrees, 0.1, 0, period50Hz},
	{ChannelExhaustCamAngle2, "Exhaust Cam Angle 2", "Ex Cam2", 0x36D, 2, 3, true, UnitDegrees, 0.1, 0, period50Hz},

	// 0x36E
	{ChannelEngineLimitActive, "Engine Limiting Active", "Limit", 0x36E, 0, 1, false, UnitBoolean, 1, 0, period50Hz},
	{ChannelLaunchIgnRetard, "Launch Control Ignition Retard", "LC Ign", 0x36E, 2, 3, true, UnitDegrees, 0.1, 0, period50Hz},
	{ChannelLaunchFuelEnrich, "Launch Control Fuel Enrich", "LC Fuel", 0x36E, 4, 5, true, UnitPercent, 0.1, 0, period50Hz},
	{ChannelLongitudinalG, "Longitudinal G", "Long G", 0x36E, 6, 7, true, UnitMPS2, 0.1, 0, period50Hz},

	// 0x36F
	{ChannelGenericOutput1Duty, "Generic Output 1 Duty Cycle", "Gen1 DC", 0x36F, 0, 1, false, UnitPercent, 0.1, 0, period50Hz},
	{ChannelBoostControlOutput, "Boost Control Output", "BC Out", 0x36F, 2, 3, false, UnitPercent, 0.1, 0, period50Hz},

	// 0x370
	{ChannelVehicleSpeed, "Vehicle Speed", "Speed", 0x370, 0, 1, false, UnitKPH, 0.1, 0, period50Hz},
	{ChannelIntakeCamAngle1, "Intake Cam Angle 1", "In Cam1", 0x370, 4, 5, true, UnitDegrees, 0.1, 0, period50Hz},
	{ChannelIntakeCamAngle2, "Intake Cam Angle 2", "In Cam2", 0x370, 6, 7, true, UnitDegrees, 0.1, 0, period50Hz},

	// 0x371
	{ChannelFuelFlow, "Fuel Flow", "Flow", 0x371, 0, 1, false, UnitCCPerMin, 1, 0, period20Hz},
	{ChannelFuelFlowReturn, "Fuel Flow Return", "Flow Ret", 0x371, 2, 3, false, UnitCCPerMin, 1, 0, period20Hz},

	// 0x372
	{ChannelBatteryVoltage, "Battery Voltage", "Battery", 0x372, 0, 1, false, UnitVolts, 0.1, 0, period20Hz},
	{ChannelTargetBoostLevel, "Target Boost Level", "Tgt Boost", 0x372, 4, 5, false, UnitKPaAbs, 0.1, 0, period20Hz},
	{ChannelBaroPressure, "Barometric Pressure", "Baro", 0x372, 6, 7, false, UnitKPaAbs, 0.1, 0, period20Hz},

	// 0x373
	{ChannelEGT1, "EGT Sensor 1", "EGT1", 0x373, 0, 1, false, UnitKelvin, 0.1, 0, period20Hz},
	{ChannelEGT2, "EGT Sensor 2", "EGT2", 0x373, 2, 3, false, UnitKelvin, 0.1, 0, period20Hz},

	// 0x3E0
	{ChannelCoolantTemperature, "Coolant Temperature", "CLT", 0x3E0, 0, 1, false, UnitKelvin, 0.1, 0, period5Hz},
	{ChannelAirTemperature, "Air Temperature", "IAT", 0x3E0, 2, 3, false, UnitKelvin, 0.1, 0, period5Hz},
	{ChannelFuelTemperature, "Fuel Temperature", "Fuel T", 0x3E0, 4, 5, false, UnitKelvin, 0.1, 0, period5Hz},
	{ChannelOilTemperature, "Oil Temperature", "Oil T", 0x3E0, 6, 7, false, UnitKelvin, 0.1, 0, period5Hz},

	// 0x3E1
	{ChannelGearboxOilTemperature, "Gearbox Oil Temperature", "Gbox T", 0x3E1, 0, 1, false, UnitKelvin, 0.1, 0, period5Hz},
	{ChannelDiffOilTemperature, "Diff Oil Temperature", "Diff T", 0x3E1, 2, 3, false, UnitKelvin, 0.1, 0, period5Hz},
	{ChannelFuelComposition, "Fuel Composition", "Ethanol", 0x3E1, 4, 5, false, UnitPercent, 0.1, 0, period5Hz},

	// 0x3E2
	{ChannelFuelLevel, "Fuel Level", "Fuel Lvl", 0x3E2, 0, 1, false, UnitLiters, 0.1, 0, period5Hz},

	// 0x3E3
	{ChannelFuelTrimShortTerm1, "Fuel Trim Short Term Bank 1", "STFT1", 0x3E3, 0, 1, true, UnitPercent, 0.1, 0, period5Hz},
	{ChannelFuelTrimShortTerm2, "Fuel Trim Short Term Bank 2", "STFT2", 0x3E3, 2, 3, true, UnitPercent, 0.1, 0, period5Hz},
	{ChannelFuelTrimLongTerm1, "Fuel Trim Long Term Bank 1", "LTFT1", 0x3E3, 4, 5, true, UnitPercent, 0.1, 0, period5Hz},
	{ChannelFuelTrimLongTerm2, "Fuel Trim Long Term Bank 2", "LTFT2", 0x3E3, 6, 7, true, UnitPercent, 0.1, 0, period5Hz},

	// 0x3EB
	{ChannelRaceTimer, "Race Timer", "Timer", 0x3EB, 0, 3, false, UnitMilliseconds, 1, 0, period20Hz},
	{ChannelIgnitionAngleBank1, "Ignition Angle Bank 1", "Ign B1", 0x3EB, 4, 5, true, UnitDegrees, 0.1, 0, period20Hz},
	{ChannelIgnitionAngleBank2, "Ignition Angle Bank 2", "Ign B2", 0x3EB, 6, 7, true, UnitDegrees, 0.1, 0, period20Hz},

	// 0x3EF
	{ChannelECUTemperature, "ECU Temperature", "ECU T", 0x3EF, 0, 1, false, UnitKelvin, 0.1, 0, period5Hz},

	// 0x470
	{ChannelWidebandOverall, "Wideband Overall", "WB", 0x470, 0, 1, false, UnitLambda, 0.001, 0, period50Hz},
	{ChannelWidebandBank1, "Wideband Bank 1", "WB B1", 0x470, 2, 3, false, UnitLambda, 0.001, 0, period50Hz},
	{ChannelWidebandBank2, "Wideband Bank 2", "WB B2", 0x470, 4, 5, false, UnitLambda, 0.001, 0, period50Hz},
	{ChannelGearSelectorPosition, "Gear Selector Position", "Selector", 0x470, 6, 6, false, UnitEnum, 1, 0, period50Hz},
	{ChannelGear, "Gear", "Gear", 0x470, 7, 7, true, UnitEnum, 1, 0, period50Hz},

	// 0x473
	{ChannelTotalFuelUsed, "Total Fuel Used", "Fuel Used", 0x473, 0, 3, false, UnitCC, 1, 0, period5Hz},
}

// Signals returns the Haltech broadcast table, ordered by channel id.
func Signals() []Signal {
	out := make([]Signal, len(haltechSignals))
	copy(out, haltechSignals)
	return out
}

// NumChannels is the number of channels in the Haltech table.
const NumChannels = int(numChannels)
