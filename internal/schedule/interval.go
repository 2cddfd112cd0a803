package schedule

import (
	"fmt"

	"github.com/dmelton/wrenchlog/internal/models"
)

// IntervalConfig is the user-supplied recurrence configuration for a task.
//
// Two mutually exclusive styles exist for the mileage dimension: interval
// style supplies Miles directly; absolute style supplies DueOdometer, from
// which an equivalent Miles is back-computed against the motorcycle's
// current odometer. The date dimension (Days) may coexist with either.
type IntervalConfig struct {
	Miles       *int
	Days        *int
	Base        string
	DueOdometer *int // absolute-style milestone, exclusive with Miles
}

// Normalize validates an IntervalConfig and resolves the absolute style into
// interval style. It returns the effective miles/days/base triple.
func Normalize(cfg IntervalConfig, currentOdometer int) (IntervalConfig, error) {
	out := cfg

	if cfg.DueOdometer != nil {
		if cfg.Miles != nil {
			return out, fmt.Errorf("schedule: interval miles and absolute due odometer are mutually exclusive")
		}
		derived := *cfg.DueOdometer - currentOdometer
		if derived <= 0 {
			return out, fmt.Errorf("schedule: due odometer %d must be greater than current odometer %d", *cfg.DueOdometer, currentOdometer)
		}
		out.Miles = &derived
		out.DueOdometer = nil
	}

	if out.Miles == nil && out.Days == nil {
		return out, fmt.Errorf("schedule: at least one of a mileage or day trigger is required")
	}
	if out.Miles != nil && *out.Miles <= 0 {
		return out, fmt.Errorf("schedule: interval miles must be positive, got %d", *out.Miles)
	}
	if out.Days != nil && *out.Days <= 0 {
		return out, fmt.Errorf("schedule: interval days must be positive, got %d", *out.Days)
	}

	switch out.Base {
	case "":
		out.Base = models.BaseCurrent
	case models.BaseCurrent, models.BaseZero:
	default:
		return out, fmt.Errorf("schedule: unknown interval base %q", out.Base)
	}

	return out, nil
}
