package garage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/notify"
	"github.com/dmelton/wrenchlog/internal/schedule"
	"gorm.io/gorm"
)

// MileageUpdate is the input to ApplyMileageUpdate.
type MileageUpdate struct {
	MotorcycleID uint
	NewMileage   int
	At           time.Time
	Notes        string

	// AllowRollback permits an odometer decrease, e.g. after an instrument
	// cluster replacement. Decreases are rejected otherwise.
	AllowRollback bool
}

// MileageResult reports the outcome of an odometer update.
type MileageResult struct {
	// Unchanged is true when the new mileage equals the stored value: no
	// log entry is created and no tasks are recomputed. Repeating an
	// identical request is a no-op.
	Unchanged  bool
	Motorcycle models.Motorcycle
	// Log is the entry recorded for this update. A near-duplicate within
	// the dedup window is reused rather than appended.
	Log          *models.MileageLog
	UpdatedTasks []models.MaintenanceTask
	// NewlyDue holds the tasks whose due status flipped from false to true
	// as a result of this specific update.
	NewlyDue []models.MaintenanceTask
}

// ApplyMileageUpdate records an odometer reading and propagates it: the
// mileage log is appended (deduplicated at write time), the motorcycle's
// current mileage is updated, and every active interval task has its
// due-point cache recomputed off its unchanged base. The whole propagation
// runs in one transaction per motorcycle.
//
// Mileage updates never rebase a task's cycle; only completion does.
func (s *Service) ApplyMileageUpdate(ctx context.Context, userID uint, in MileageUpdate) (*MileageResult, error) {
	if in.NewMileage < 0 {
		return nil, validationf("mileage must not be negative, got %d", in.NewMileage)
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}

	res := &MileageResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moto, err := ownedMotorcycle(tx, userID, in.MotorcycleID)
		if err != nil {
			return err
		}

		if in.NewMileage == moto.CurrentMileage {
			res.Unchanged = true
			res.Motorcycle = *moto
			return nil
		}
		if in.NewMileage < moto.CurrentMileage && !in.AllowRollback {
			return validationf("new mileage %d is below current mileage %d; odometer decreases require an explicit rollback",
				in.NewMileage, moto.CurrentMileage)
		}

		prev := moto.CurrentMileage

		entry, err := s.appendLog(tx, moto.ID, prev, in)
		if err != nil {
			return err
		}
		res.Log = entry

		if err := tx.Model(moto).Update("current_mileage", in.NewMileage).Error; err != nil {
			return fmt.Errorf("garage: update mileage: %w", err)
		}
		moto.CurrentMileage = in.NewMileage
		res.Motorcycle = *moto

		var tasks []models.MaintenanceTask
		if err := tx.
			Where("motorcycle_id = ? AND archived = ? AND (interval_miles IS NOT NULL OR interval_days IS NOT NULL)",
				moto.ID, false).
			Find(&tasks).Error; err != nil {
			return fmt.Errorf("garage: load tasks: %w", err)
		}

		for _, task := range tasks {
			preDue := schedule.Compute(schedule.InputForTask(task, prev, in.At)).IsDue

			updated := schedule.Recompute(task, in.NewMileage, in.At)
			if err := tx.Model(&models.MaintenanceTask{}).
				Where("id = ?", task.ID).
				Updates(map[string]interface{}{
					"next_due_odometer": updated.NextDueOdometer,
					"next_due_date":     updated.NextDueDate,
				}).Error; err != nil {
				return fmt.Errorf("garage: refresh task %d: %w", task.ID, err)
			}

			postDue := schedule.Compute(schedule.InputForTask(updated, in.NewMileage, in.At)).IsDue
			res.UpdatedTasks = append(res.UpdatedTasks, updated)
			if !preDue && postDue {
				res.NewlyDue = append(res.NewlyDue, updated)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.Unchanged && s.events != nil {
		s.events.Publish(ctx, mileageEvent(userID, res))
	}
	return res, nil
}

// appendLog creates a mileage log entry unless a near-duplicate (same
// motorcycle, same new mileage, within the dedup window) exists, in which
// case the existing entry is reused. Dedup happens at write time so safe
// client-side retries are possible.
func (s *Service) appendLog(tx *gorm.DB, motorcycleID uint, prev int, in MileageUpdate) (*models.MileageLog, error) {
	var entry models.MileageLog
	err := tx.
		Where("motorcycle_id = ? AND new_mileage = ? AND recorded_at > ?",
			motorcycleID, in.NewMileage, in.At.Add(-s.dedupWindow)).
		Order("recorded_at DESC").
		First(&entry).Error
	if err == nil {
		return &entry, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("garage: dedup lookup: %w", err)
	}

	entry = models.MileageLog{
		MotorcycleID:    motorcycleID,
		PreviousMileage: prev,
		NewMileage:      in.NewMileage,
		RecordedAt:      in.At,
		Notes:           in.Notes,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("garage: create mileage log: %w", err)
	}
	return &entry, nil
}

// mileageEvent formats the single mileage_updated event for an update.
// Per-task due notifications are the notifier's responsibility on its sweep.
func mileageEvent(userID uint, res *MileageResult) notify.Event {
	return notify.Event{
		Type:     notify.EventMileageUpdated,
		UserID:   userID,
		Title:    fmt.Sprintf("Mileage updated: %s", res.Motorcycle.Name),
		Body:     fmt.Sprintf("Odometer now reads %d.", res.Motorcycle.CurrentMileage),
		Severity: "info",
		Fields: []notify.Field{
			{Name: "Previous", Value: fmt.Sprintf("%d", res.Log.PreviousMileage)},
			{Name: "New", Value: fmt.Sprintf("%d", res.Motorcycle.CurrentMileage)},
			{Name: "Newly due tasks", Value: fmt.Sprintf("%d", len(res.NewlyDue))},
		},
	}
}
