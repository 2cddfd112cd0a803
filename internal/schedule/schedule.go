// Package schedule implements the maintenance due-point calculator.
//
// Everything in this package is a pure function over supplied state: no
// clocks, no storage, no locks. Callers pass the motorcycle's current
// odometer and "today" explicitly and persist any results themselves.
package schedule

import (
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
)

// Input carries everything the calculator needs for one task.
type Input struct {
	BaseOdometer  *int
	IntervalMiles *int
	IntervalBase  string // models.BaseCurrent or models.BaseZero
	BaseDate      *time.Time
	IntervalDays  *int

	CurrentOdometer int
	Today           time.Time
}

// View is the calculator's output. Nil pointers mean "not tracked by this
// dimension" and must never be read as zero or overdue.
type View struct {
	DueMileage        *int
	DueDate           *time.Time
	RemainingMiles    *int
	CompletionPercent *float64
	IsDue             bool
}

// Compute returns the due point, remaining distance, completion progress and
// due status for a task. When both a mileage and a date trigger exist, due
// status is a logical OR: whichever arrives first wins.
func Compute(in Input) View {
	var v View

	v.DueMileage = DueMileage(in.BaseOdometer, in.IntervalMiles, in.IntervalBase, in.CurrentOdometer)
	v.DueDate = DueDate(in.BaseDate, in.IntervalDays)

	if v.DueMileage != nil {
		remaining := *v.DueMileage - in.CurrentOdometer
		v.RemainingMiles = &remaining

		if in.IntervalMiles != nil && *in.IntervalMiles > 0 {
			covered := *in.IntervalMiles - max(0, remaining)
			pct := clamp(float64(covered)/float64(*in.IntervalMiles)*100, 0, 100)
			v.CompletionPercent = &pct
		}
	}

	v.IsDue = isDue(v.DueMileage, in.CurrentOdometer, v.DueDate, in.Today)
	return v
}

// DueMileage computes the absolute odometer value at which the task is due,
// or nil when no mileage trigger is configured.
//
// BaseCurrent anchors the cycle to the base odometer; BaseZero snaps to the
// next multiple of the interval strictly greater than the current odometer,
// aligning to fixed factory milestones regardless of history.
func DueMileage(baseOdometer, intervalMiles *int, base string, currentOdometer int) *int {
	if intervalMiles == nil || *intervalMiles <= 0 {
		return nil
	}
	var due int
	if base == models.BaseZero {
		due = NextMultiple(*intervalMiles, currentOdometer)
	} else {
		anchor := currentOdometer
		if baseOdometer != nil {
			anchor = *baseOdometer
		}
		due = anchor + *intervalMiles
	}
	return &due
}

// DueDate computes the absolute date at which the task is due, or nil when
// no day trigger is configured. Calendar-day arithmetic, no timezone
// conversion beyond local calendar days.
func DueDate(baseDate *time.Time, intervalDays *int) *time.Time {
	if intervalDays == nil || *intervalDays <= 0 || baseDate == nil {
		return nil
	}
	due := baseDate.AddDate(0, 0, *intervalDays)
	return &due
}

// NextMultiple returns the smallest multiple of interval strictly greater
// than reference.
func NextMultiple(interval, reference int) int {
	return (reference/interval + 1) * interval
}

// isDue applies the logical-OR due rule. A task with only one trigger type
// is judged solely on that trigger.
func isDue(dueMileage *int, currentOdometer int, dueDate *time.Time, today time.Time) bool {
	if dueMileage != nil && currentOdometer >= *dueMileage {
		return true
	}
	if dueDate != nil && !dayOf(today).Before(dayOf(*dueDate)) {
		return true
	}
	return false
}

// dayOf truncates a time to its local calendar day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
