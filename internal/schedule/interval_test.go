package schedule

import (
	"strings"
	"testing"

	"github.com/dmelton/wrenchlog/internal/models"
)

func TestNormalize_IntervalStyle(t *testing.T) {
	got, err := Normalize(IntervalConfig{Miles: intPtr(3000), Days: intPtr(180)}, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.Miles != 3000 || *got.Days != 180 {
		t.Errorf("got miles=%d days=%d, want 3000/180", *got.Miles, *got.Days)
	}
	if got.Base != models.BaseCurrent {
		t.Errorf("Base = %q, want default %q", got.Base, models.BaseCurrent)
	}
}

func TestNormalize_AbsoluteStyle(t *testing.T) {
	got, err := Normalize(IntervalConfig{DueOdometer: intPtr(12000)}, 9000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Miles == nil || *got.Miles != 3000 {
		t.Errorf("Miles = %v, want back-computed 3000", got.Miles)
	}
	if got.DueOdometer != nil {
		t.Error("DueOdometer should be consumed during normalization")
	}
}

func TestNormalize_AbsoluteBehindOdometer(t *testing.T) {
	_, err := Normalize(IntervalConfig{DueOdometer: intPtr(8000)}, 9000)
	if err == nil {
		t.Fatal("expected error for due odometer behind current")
	}
	if !strings.Contains(err.Error(), "greater than current odometer") {
		t.Errorf("error = %q, want to mention current odometer", err.Error())
	}
}

func TestNormalize_BothStylesRejected(t *testing.T) {
	_, err := Normalize(IntervalConfig{Miles: intPtr(3000), DueOdometer: intPtr(12000)}, 5000)
	if err == nil {
		t.Fatal("expected error for mixed interval styles")
	}
}

func TestNormalize_NoTriggers(t *testing.T) {
	_, err := Normalize(IntervalConfig{}, 5000)
	if err == nil {
		t.Fatal("expected error when both triggers are absent")
	}
	if !strings.Contains(err.Error(), "at least one") {
		t.Errorf("error = %q, want to mention missing triggers", err.Error())
	}
}

func TestNormalize_NonPositiveIntervals(t *testing.T) {
	if _, err := Normalize(IntervalConfig{Miles: intPtr(0)}, 5000); err == nil {
		t.Error("expected error for zero miles")
	}
	if _, err := Normalize(IntervalConfig{Days: intPtr(-5)}, 5000); err == nil {
		t.Error("expected error for negative days")
	}
}

func TestNormalize_UnknownBase(t *testing.T) {
	_, err := Normalize(IntervalConfig{Miles: intPtr(3000), Base: "lunar"}, 5000)
	if err == nil {
		t.Fatal("expected error for unknown base")
	}
	if !strings.Contains(err.Error(), "unknown interval base") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "unknown interval base")
	}
}

func TestNormalize_ZeroBaseAccepted(t *testing.T) {
	got, err := Normalize(IntervalConfig{Miles: intPtr(6000), Base: models.BaseZero}, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Base != models.BaseZero {
		t.Errorf("Base = %q, want %q", got.Base, models.BaseZero)
	}
}
