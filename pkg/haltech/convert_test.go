// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package haltech

import (
	"math"
	"testing"
)

func closeTo(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestConvert_Identity(t *testing.T) {
	values := []float32{0, 1, -1, 101.325, 273.15, -40, 1e6, float32(math.SmallestNonzeroFloat32)}
	for u := Unit(0); u < numUnits; u++ {
		for _, v := range values {
			got, err := Convert(v, u, u)
			if err != nil {
				t.Errorf("Convert(%v, %v, %v) error: %v", v, u, u, err)
			}
			if got != v {
				t.Errorf("Convert(%v, %v, %v) = %v, want exact input", v, u, u, got)
			}
		}
	}
}

func TestConvert_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		value    float32
		from, to Unit
		want     float64
	}{
		{"100 kPa to PSI", 100, UnitKPa, UnitPSI, 14.5038},
		{"sea level abs to gauge", 101.325, UnitKPaAbs, UnitKPa, 0},
		{"sea level abs to PSI gauge", 101.325, UnitKPaAbs, UnitPSI, 0},
		{"200 kPa abs to PSI abs", 200, UnitKPaAbs, UnitPSIAbs, 29.0076},
		{"0 kPa gauge to kPa abs", 0, UnitKPa, UnitKPaAbs, 101.325},
		{"boiling K to C", 373.15, UnitKelvin, UnitCelsius, 100},
		{"boiling K to F", 373.15, UnitKelvin, UnitFahrenheit, 212},
		{"-40 C to F", -40, UnitCelsius, UnitFahrenheit, -40},
		{"100 km/h to mph", 100, UnitKPH, UnitMPH, 62.1371},
		{"one gallon of cc", 3785.41, UnitCC, UnitGallons, 1},
		{"inch of mm", 25.4, UnitMillimeters, UnitInches, 1},
		{"km to miles", 1000, UnitMeters, UnitMiles, 0.621371},
		{"meter to feet", 1, UnitMeters, UnitFeet, 3.28084},
		{"stoich lambda to AFR", 1, UnitLambda, UnitAFR, 14.7},
		{"ms to s", 1500, UnitMilliseconds, UnitSeconds, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.from, tt.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(float64(got)-tt.want) > 0.001 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	values := []float32{-50, -1, 0, 0.5, 1, 14.7, 100, 250.25, 5000}
	for pair := range conversions {
		if _, ok := conversions[unitPair{pair.to, pair.from}]; !ok {
			t.Errorf("%v -> %v has no reverse formula", pair.from, pair.to)
			continue
		}
		for _, v := range values {
			there, err := Convert(v, pair.from, pair.to)
			if err != nil {
				t.Fatalf("Convert error: %v", err)
			}
			back, err := Convert(there, pair.to, pair.from)
			if err != nil {
				t.Fatalf("Convert error: %v", err)
			}
			if !closeTo(float64(back), float64(v), 1e-4) {
				t.Errorf("%v -> %s -> %s -> %v", v, unitName(pair.from), unitName(pair.to), back)
			}
		}
	}
}

func TestConvert_Unsupported(t *testing.T) {
	tests := []struct {
		from, to Unit
	}{
		{UnitRPM, UnitPSI},
		{UnitKelvin, UnitMPH},
		{UnitFeet, UnitMiles}, // would need chaining through meters
		{UnitLiters, UnitGallons},
	}

	for _, tt := range tests {
		got, err := Convert(42.5, tt.from, tt.to)
		if err == nil {
			t.Errorf("%v -> %v: expected error", tt.from, tt.to)
		}
		if got != 42.5 {
			t.Errorf("%v -> %v: value changed to %v", tt.from, tt.to, got)
		}
		if Supported(tt.from, tt.to) {
			t.Errorf("Supported(%v, %v) = true", tt.from, tt.to)
		}
	}
}

func TestUnitOptions_ConvertFromEveryCanonicalUnit(t *testing.T) {
	for _, s := range Signals() {
		for _, u := range UnitOptions(s.Unit) {
			if !Supported(s.Unit, u) {
				t.Errorf("%s: option %v not convertible from %v", s.Name, u, s.Unit)
			}
		}
	}
}

func TestNextUnit(t *testing.T) {
	tests := []struct {
		name      string
		canonical Unit
		current   Unit
		direction int
		want      Unit
	}{
		{"forward", UnitKPaAbs, UnitKPaAbs, 1, UnitPSIAbs},
		{"forward wraps", UnitKPaAbs, UnitPSI, 1, UnitKPaAbs},
		{"backward wraps", UnitKPaAbs, UnitKPaAbs, -1, UnitPSI},
		{"backward", UnitKPa, UnitKPa, -1, UnitPSIAbs},
		{"temperature", UnitKelvin, UnitFahrenheit, 1, UnitKelvin},
		{"unknown current falls back", UnitKelvin, UnitMPH, 1, UnitKelvin},
		{"uncategorised stays", UnitRPM, UnitRPM, 1, UnitRPM},
		{"zero direction", UnitKPH, UnitMPH, 0, UnitMPH},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextUnit(tt.canonical, tt.current, tt.direction); got != tt.want {
				t.Errorf("NextUnit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnitString(t *testing.T) {
	if UnitKPaAbs.String() != "kPa (abs)" {
		t.Errorf("got %q", UnitKPaAbs.String())
	}
	if UnitFeet.String() != "Foot" {
		t.Errorf("got %q", UnitFeet.String())
	}
	if Unit(200).String() != "Unit(200)" {
		t.Errorf("got %q", Unit(200).String())
	}
	if Compatible(UnitKelvin, UnitPSI) {
		t.Error("Kelvin should not be compatible with PSI")
	}
	if !Compatible(UnitRPM, UnitRPM) {
		t.Error("a unit is always compatible with itself")
	}
}
