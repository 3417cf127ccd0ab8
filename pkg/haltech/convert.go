// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"errors"
	"fmt"
)

// ErrUnsupportedConversion is wrapped by every ConversionError.
var ErrUnsupportedConversion = errors.New("unsupported conversion")

// ConversionError reports a unit pair with no direct formula.
type ConversionError struct {
	From Unit
	To   Unit
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrUnsupportedConversion, unitName(e.From), unitName(e.To))
}

func (e *ConversionError) Unwrap() error {
	return ErrUnsupportedConversion
}

func unitName(u Unit) string {
	if s := u.String(); s != "" {
		return s
	}
	return fmt.Sprintf("Unit(%d)", uint8(u))
}

// Conversion constants.
const (
	atmKPa      = 101.325
	kPaToPSI    = 0.145038
	atmPSI      = atmKPa * kPaToPSI
	zeroCelsius = 273.15
	kphToMPH    = 0.621371
	ccPerGallon = 3785.41
	mmPerInch   = 25.4
	mToFeet     = 3.28084
	mToMiles    = 0.000621371
	stoichAFR   = 14.7
	msPerSecond = 1000
)

type unitPair struct {
	from, to Unit
}

// Direct formulas only. No pair is reached by chaining two others.
var conversions = map[unitPair]func(float64) float64{
	// pressure, gauge and absolute
	{UnitKPa, UnitPSI}:       func(v float64) float64 { return v * kPaToPSI },
	{UnitPSI, UnitKPa}:       func(v float64) float64 { return v / kPaToPSI },
	{UnitKPaAbs, UnitPSIAbs}: func(v float64) float64 { return v * kPaToPSI },
	{UnitPSIAbs, UnitKPaAbs}: func(v float64) float64 { return v / kPaToPSI },
	{UnitKPaAbs, UnitKPa}:    func(v float64) float64 { return v - atmKPa },
	{UnitKPa, UnitKPaAbs}:    func(v float64) float64 { return v + atmKPa },
	{UnitPSIAbs, UnitPSI}:    func(v float64) float64 { return v - atmPSI },
	{UnitPSI, UnitPSIAbs}:    func(v float64) float64 { return v + atmPSI },
	{UnitKPaAbs, UnitPSI}:    func(v float64) float64 { return (v - atmKPa) * kPaToPSI },
	{UnitPSI, UnitKPaAbs}:    func(v float64) float64 { return v/kPaToPSI + atmKPa },
	{UnitKPa, UnitPSIAbs}:    func(v float64) float64 { return (v + atmKPa) * kPaToPSI },
	{UnitPSIAbs, UnitKPa}:    func(v float64) float64 { return v/kPaToPSI - atmKPa },

	// temperature
	{UnitKelvin, UnitCelsius}:     func(v float64) float64 { return v - zeroCelsius },
	{UnitCelsius, UnitKelvin}:     func(v float64) float64 { return v + zeroCelsius },
	{UnitKelvin, UnitFahrenheit}:  func(v float64) float64 { return (v-zeroCelsius)*9/5 + 32 },
	{UnitFahrenheit, UnitKelvin}:  func(v float64) float64 { return (v-32)*5/9 + zeroCelsius },
	{UnitCelsius, UnitFahrenheit}: func(v float64) float64 { return v*9/5 + 32 },
	{UnitFahrenheit, UnitCelsius}: func(v float64) float64 { return (v - 32) * 5 / 9 },

	// speed
	{UnitKPH, UnitMPH}: func(v float64) float64 { return v * kphToMPH },
	{UnitMPH, UnitKPH}: func(v float64) float64 { return v / kphToMPH },

	// volume
	{UnitCC, UnitGallons}: func(v float64) float64 { return v / ccPerGallon },
	{UnitGallons, UnitCC}: func(v float64) float64 { return v * ccPerGallon },

	// length
	{UnitMillimeters, UnitInches}: func(v float64) float64 { return v / mmPerInch },
	{UnitInches, UnitMillimeters}: func(v float64) float64 { return v * mmPerInch },
	{UnitMeters, UnitFeet}:        func(v float64) float64 { return v * mToFeet },
	{UnitFeet, UnitMeters}:        func(v float64) float64 { return v / mToFeet },
	{UnitMeters, UnitMiles}:       func(v float64) float64 { return v * mToMiles },
	{UnitMiles, UnitMeters}:       func(v float64) float64 { return v / mToMiles },

	// ratio
	{UnitLambda, UnitAFR}: func(v float64) float64 { return v * stoichAFR },
	{UnitAFR, UnitLambda}: func(v float64) float64 { return v / stoichAFR },

	// time
	{UnitMilliseconds, UnitSeconds}: func(v float64) float64 { return v / msPerSecond },
	{UnitSeconds, UnitMilliseconds}: func(v float64) float64 { return v * msPerSecond },
}

// Convert converts value from one unit to another. Identical units return value
// unchanged. A pair without a direct formula also returns value unchanged,
// together with a *ConversionError for the caller to report.
func Convert(value float32, from, to Unit) (float32, error) {
	if from == to {
		return value, nil
	}
	fn, ok := conversions[unitPair{from, to}]
	if !ok {
		return value, &ConversionError{From: from, To: to}
	}
	return float32(fn(float64(value))), nil
}

// Supported reports whether Convert has a formula for the pair.
func Supported(from, to Unit) bool {
	if from == to {
		return true
	}
	_, ok := conversions[unitPair{from, to}]
	return ok
}
