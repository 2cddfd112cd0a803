package units

import (
	"testing"

	"github.com/dmelton/wrenchlog/internal/models"
)

func TestMilesToKm(t *testing.T) {
	tests := []struct {
		miles int
		want  int
	}{
		{0, 0},
		{1, 2},
		{100, 161},
		{3000, 4828},
		{12000, 19312},
	}
	for _, tt := range tests {
		if got := MilesToKm(tt.miles); got != tt.want {
			t.Errorf("MilesToKm(%d) = %d, want %d", tt.miles, got, tt.want)
		}
	}
}

func TestKmToMiles(t *testing.T) {
	tests := []struct {
		km   int
		want int
	}{
		{0, 0},
		{161, 100},
		{5000, 3107},
	}
	for _, tt := range tests {
		if got := KmToMiles(tt.km); got != tt.want {
			t.Errorf("KmToMiles(%d) = %d, want %d", tt.km, got, tt.want)
		}
	}
}

func TestRoundTripStaysClose(t *testing.T) {
	// Whole-unit rounding loses at most a mile either way.
	for _, miles := range []int{1, 57, 999, 8200, 100000} {
		back := KmToMiles(MilesToKm(miles))
		if diff := back - miles; diff < -1 || diff > 1 {
			t.Errorf("round trip of %d drifted to %d", miles, back)
		}
	}
}

func TestDisplayConversion(t *testing.T) {
	if got := ToDisplay(100, models.UnitKilometers); got != 161 {
		t.Errorf("ToDisplay km = %d, want 161", got)
	}
	if got := ToDisplay(100, models.UnitMiles); got != 100 {
		t.Errorf("ToDisplay mi = %d, want unchanged 100", got)
	}
	if got := FromInput(161, models.UnitKilometers); got != 100 {
		t.Errorf("FromInput km = %d, want 100", got)
	}
	if got := ToDisplayPtr(nil, models.UnitKilometers); got != nil {
		t.Errorf("ToDisplayPtr(nil) = %v, want nil", got)
	}
}
