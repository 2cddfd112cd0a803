// Package units converts between miles and kilometers at the presentation
// boundary. Storage and scheduling work in miles; a rider whose unit
// preference is kilometers sees converted values only in API responses and
// submits distances that are converted back before they reach the engine.
package units

import (
	"math"

	"github.com/dmelton/wrenchlog/internal/models"
)

const kmPerMile = 1.609344

// MilesToKm converts a stored mileage to kilometers, rounded to the nearest
// whole kilometer.
func MilesToKm(miles int) int {
	return int(math.Round(float64(miles) * kmPerMile))
}

// KmToMiles converts a submitted distance in kilometers to miles, rounded to
// the nearest whole mile.
func KmToMiles(km int) int {
	return int(math.Round(float64(km) / kmPerMile))
}

// ToDisplay converts a stored mileage for the given unit preference.
// The unit string matches the values stored on the user record.
func ToDisplay(miles int, unit string) int {
	if unit == models.UnitKilometers {
		return MilesToKm(miles)
	}
	return miles
}

// FromInput converts a submitted distance in the given unit back to miles.
func FromInput(value int, unit string) int {
	if unit == models.UnitKilometers {
		return KmToMiles(value)
	}
	return value
}

// ToDisplayPtr converts an optional mileage, preserving nil.
func ToDisplayPtr(miles *int, unit string) *int {
	if miles == nil {
		return nil
	}
	v := ToDisplay(*miles, unit)
	return &v
}
