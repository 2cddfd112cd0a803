package schedule

import (
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
)

// Recompute refreshes a task's cached due fields from its base point and the
// motorcycle's current state. It is the single transform every mutation path
// goes through: the cache is never hand-patched.
//
// Bases are left untouched; only completion rebases a cycle.
func Recompute(task models.MaintenanceTask, currentOdometer int, today time.Time) models.MaintenanceTask {
	v := Compute(InputForTask(task, currentOdometer, today))
	task.NextDueOdometer = v.DueMileage
	task.NextDueDate = v.DueDate
	return task
}

// InputForTask assembles a calculator Input from a task's stored fields.
func InputForTask(task models.MaintenanceTask, currentOdometer int, today time.Time) Input {
	return Input{
		BaseOdometer:    task.BaseOdometer,
		IntervalMiles:   task.IntervalMiles,
		IntervalBase:    task.IntervalBase,
		BaseDate:        task.BaseDate,
		IntervalDays:    task.IntervalDays,
		CurrentOdometer: currentOdometer,
		Today:           today,
	}
}
