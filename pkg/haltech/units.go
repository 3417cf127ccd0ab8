// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import "fmt"

// Unit identifies the unit a value is expressed in. Values are persisted in the
// slot layout, so existing constants must never be renumbered.
type Unit uint8

const (
	UnitRPM Unit = iota
	UnitKPaAbs
	UnitKPa
	UnitPercent
	UnitDegrees
	UnitKPH
	UnitMilliseconds
	UnitLambda
	UnitRaw
	UnitDecibels
	UnitMPS2
	UnitBoolean
	UnitCCPerMin
	UnitVolts
	UnitKelvin
	UnitPPM
	UnitGPM3
	UnitLiters
	UnitSeconds
	UnitEnum
	UnitMillimeters
	UnitBitField
	UnitCC
	UnitMeters
	UnitNone
	UnitPSI
	UnitPSIAbs
	UnitDegreesPerSecond
	UnitAFR
	UnitCelsius
	UnitFahrenheit
	UnitMPH
	UnitGallons
	UnitMPG
	UnitFeet
	UnitInches
	UnitMiles

	numUnits
)

var unitDisplayStrings = [numUnits]string{
	UnitRPM:              "RPM",
	UnitKPaAbs:           "kPa (abs)",
	UnitKPa:              "kPa",
	UnitPercent:          "%",
	UnitDegrees:          "Deg",
	UnitKPH:              "km/h",
	UnitMilliseconds:     "ms",
	UnitLambda:           "Lambda",
	UnitRaw:              "",
	UnitDecibels:         "dB",
	UnitMPS2:             "m/s2",
	UnitBoolean:          "",
	UnitCCPerMin:         "cc/min",
	UnitVolts:            "V",
	UnitKelvin:           "K",
	UnitPPM:              "ppm",
	UnitGPM3:             "g/m3",
	UnitLiters:           "L",
	UnitSeconds:          "s",
	UnitEnum:             "",
	UnitMillimeters:      "mm",
	UnitBitField:         "",
	UnitCC:               "cc",
	UnitMeters:           "m",
	UnitNone:             "",
	UnitPSI:              "PSI",
	UnitPSIAbs:           "PSI (abs)",
	UnitDegreesPerSecond: "Deg/s",
	UnitAFR:              "AFR",
	UnitCelsius:          "C",
	UnitFahrenheit:       "F",
	UnitMPH:              "MPH",
	UnitGallons:          "Gal",
	UnitMPG:              "MPG",
	UnitFeet:             "Foot",
	UnitInches:           "Inch",
	UnitMiles:            "Mile",
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u < numUnits
}

// String returns the label drawn under a value. Dimensionless units return "".
func (u Unit) String() string {
	if !u.Valid() {
		return fmt.Sprintf("Unit(%d)", uint8(u))
	}
	return unitDisplayStrings[u]
}

// Category groups units that convert into each other.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryPressure
	CategoryTemperature
	CategorySpeed
	CategoryVolume
	CategoryShortLength
	CategoryLongLength
	CategoryRatio
	CategoryTime
)

var categoryOptions = map[Category][]Unit{
	CategoryPressure:    {UnitKPaAbs, UnitPSIAbs, UnitKPa, UnitPSI},
	CategoryTemperature: {UnitKelvin, UnitCelsius, UnitFahrenheit},
	CategorySpeed:       {UnitKPH, UnitMPH},
	CategoryVolume:      {UnitCC, UnitGallons},
	CategoryShortLength: {UnitMillimeters, UnitInches},
	CategoryLongLength:  {UnitMeters, UnitFeet, UnitMiles},
	CategoryRatio:       {UnitLambda, UnitAFR},
	CategoryTime:        {UnitMilliseconds, UnitSeconds},
}

var unitCategory = func() map[Unit]Category {
	m := make(map[Unit]Category)
	for c, units := range categoryOptions {
		for _, u := range units {
			m[u] = c
		}
	}
	return m
}()

// CategoryOf returns the conversion category of u, or CategoryNone.
func CategoryOf(u Unit) Category {
	return unitCategory[u]
}

// UnitOptions returns the ordered display units a value in canonical unit may be
// shown in. Units outside every category only offer themselves.
func UnitOptions(canonical Unit) []Unit {
	if opts, ok := categoryOptions[CategoryOf(canonical)]; ok {
		return opts
	}
	return []Unit{canonical}
}

// Compatible reports whether a value in canonical can be displayed in display.
func Compatible(canonical, display Unit) bool {
	for _, u := range UnitOptions(canonical) {
		if u == display {
			return true
		}
	}
	return false
}

// NextUnit steps through the option list of canonical's category from current,
// wrapping at both ends. A current unit outside the list yields canonical.
func NextUnit(canonical, current Unit, direction int) Unit {
	opts := UnitOptions(canonical)
	idx := -1
	for i, u := range opts {
		if u == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return canonical
	}
	n := len(opts)
	step := 0
	switch {
	case direction > 0:
		step = 1
	case direction < 0:
		step = -1
	}
	return opts[((idx+step)%n+n)%n]
}
