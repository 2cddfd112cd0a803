package garage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/schedule"
	"gorm.io/gorm"
)

// Completion describes a completed-service event. TaskID is optional: a
// record can be logged without touching any schedule.
type Completion struct {
	MotorcycleID uint
	TaskID       *uint
	Date         time.Time
	Mileage      *int
	CostCents    int64
	Notes        string

	// KeepSchedule preserves the task's original cadence instead of
	// rebasing the cycle at the completion point. The default (false)
	// resets the schedule, which is what most completions want.
	KeepSchedule bool

	// AllowRollback permits a completion mileage below the motorcycle's
	// current mileage.
	AllowRollback bool
}

// CompletionResult reports the outcome of a completion.
type CompletionResult struct {
	Record models.ServiceRecord
	// Task is the task after its cycle was advanced, when one was referenced.
	Task *models.MaintenanceTask
	// Mileage is set when the completion mileage exceeded the motorcycle's
	// current reading and was propagated as a mileage update.
	Mileage *MileageResult
}

// CompleteTask records completed service. When a recurring task is
// referenced its cycle is advanced: by default the base moves to the
// completion point and the next due point is derived from there; with
// KeepSchedule an early completion leaves the original due point untouched
// and an overdue one advances whole intervals from the original due point,
// keeping the task aligned to its original cadence.
//
// A completion mileage above the motorcycle's current reading is evidence of
// the true odometer value and is propagated through ApplyMileageUpdate,
// which also recomputes sibling tasks.
func (s *Service) CompleteTask(ctx context.Context, userID uint, in Completion) (*CompletionResult, error) {
	if in.Date.IsZero() {
		in.Date = time.Now()
	}
	if in.Mileage != nil && *in.Mileage < 0 {
		return nil, validationf("completion mileage must not be negative, got %d", *in.Mileage)
	}

	res := &CompletionResult{}
	var storedMileage int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moto, err := ownedMotorcycle(tx, userID, in.MotorcycleID)
		if err != nil {
			return err
		}
		storedMileage = moto.CurrentMileage

		if in.Mileage != nil && *in.Mileage < moto.CurrentMileage && !in.AllowRollback {
			return validationf("completion mileage %d is below current mileage %d; odometer decreases require an explicit rollback",
				*in.Mileage, moto.CurrentMileage)
		}

		if in.TaskID != nil {
			var task models.MaintenanceTask
			err := tx.Where("id = ? AND motorcycle_id = ?", *in.TaskID, moto.ID).First(&task).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "task", ID: *in.TaskID}
			}
			if err != nil {
				return fmt.Errorf("garage: load task: %w", err)
			}

			if task.Recurring {
				task = advanceCycle(task, in, moto.CurrentMileage)
				if err := tx.Save(&task).Error; err != nil {
					return fmt.Errorf("garage: advance task %d: %w", task.ID, err)
				}
			}
			res.Task = &task
		}

		mileage := moto.CurrentMileage
		if in.Mileage != nil {
			mileage = *in.Mileage
		}
		record := models.ServiceRecord{
			MotorcycleID: moto.ID,
			TaskID:       in.TaskID,
			Date:         in.Date,
			Mileage:      mileage,
			CostCents:    in.CostCents,
			Notes:        in.Notes,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("garage: create service record: %w", err)
		}
		res.Record = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Mileage != nil && *in.Mileage > storedMileage {
		mres, err := s.ApplyMileageUpdate(ctx, userID, MileageUpdate{
			MotorcycleID: in.MotorcycleID,
			NewMileage:   *in.Mileage,
			At:           in.Date,
			Notes:        "service completion",
		})
		if err != nil {
			return nil, err
		}
		res.Mileage = mres
		if res.Task != nil {
			// The propagator refreshed the task's cache; hand back the
			// persisted version.
			var task models.MaintenanceTask
			if err := s.db.WithContext(ctx).First(&task, res.Task.ID).Error; err != nil {
				return nil, fmt.Errorf("garage: reload task: %w", err)
			}
			res.Task = &task
		}
	}

	return res, nil
}

// advanceCycle returns the task with its schedule advanced for a completion
// at the given date/mileage.
func advanceCycle(task models.MaintenanceTask, in Completion, currentMileage int) models.MaintenanceTask {
	completionMileage := currentMileage
	if in.Mileage != nil {
		completionMileage = *in.Mileage
	}

	if !in.KeepSchedule {
		return rebaseCycle(task, completionMileage, in.Date)
	}

	// Maintain the original cadence. Early completion: the due point stays
	// where it was. Overdue completion: advance whole intervals from the
	// original due point, not from wherever the completion happened.
	if task.IntervalMiles != nil && *task.IntervalMiles > 0 &&
		task.NextDueOdometer != nil && completionMileage >= *task.NextDueOdometer {
		due := *task.NextDueOdometer
		for due <= completionMileage {
			due += *task.IntervalMiles
		}
		base := due - *task.IntervalMiles
		task.NextDueOdometer = &due
		task.BaseOdometer = &base
	}
	if task.IntervalDays != nil && *task.IntervalDays > 0 &&
		task.NextDueDate != nil && !dayOf(in.Date).Before(dayOf(*task.NextDueDate)) {
		due := *task.NextDueDate
		for !dayOf(due).After(dayOf(in.Date)) {
			due = due.AddDate(0, 0, *task.IntervalDays)
		}
		base := due.AddDate(0, 0, -*task.IntervalDays)
		task.NextDueDate = &due
		task.BaseDate = &base
	}
	return task
}

// rebaseCycle anchors the task's next cycle at the completion point and
// derives the new due values. Zero-based tasks snap to the next interval
// multiple past the completion mileage; current-based tasks count forward
// from it.
func rebaseCycle(task models.MaintenanceTask, completionMileage int, completionDate time.Time) models.MaintenanceTask {
	task.BaseOdometer = &completionMileage
	d := completionDate
	task.BaseDate = &d

	if task.IntervalMiles != nil && *task.IntervalMiles > 0 {
		var due int
		if task.IntervalBase == models.BaseZero {
			due = schedule.NextMultiple(*task.IntervalMiles, completionMileage)
		} else {
			due = completionMileage + *task.IntervalMiles
		}
		task.NextDueOdometer = &due
	} else {
		task.NextDueOdometer = nil
	}

	if task.IntervalDays != nil && *task.IntervalDays > 0 {
		dueDate := completionDate.AddDate(0, 0, *task.IntervalDays)
		task.NextDueDate = &dueDate
	} else {
		task.NextDueDate = nil
	}
	return task
}

// dayOf truncates a time to its local calendar day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
