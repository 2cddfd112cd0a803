package garage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/schedule"
	"gorm.io/gorm"
)

// TaskInput holds user-supplied fields for creating or editing a task.
//
// IntervalMiles and DueOdometer are the two mutually exclusive styles for
// the mileage trigger; DueOdometer is back-computed into an equivalent
// interval against the motorcycle's current mileage.
type TaskInput struct {
	Name        string
	Description string
	Priority    string
	Recurring   *bool // nil defaults to true on create

	IntervalMiles *int
	IntervalDays  *int
	IntervalBase  string
	DueOdometer   *int
}

// CreateTask creates a task on the motorcycle, anchored to the motorcycle's
// current mileage and today, with the due-point cache derived immediately.
func (s *Service) CreateTask(ctx context.Context, userID, motorcycleID uint, in TaskInput, today time.Time) (*models.MaintenanceTask, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationf("task name is required")
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	var task models.MaintenanceTask
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moto, err := ownedMotorcycle(tx, userID, motorcycleID)
		if err != nil {
			return err
		}

		cfg, err := schedule.Normalize(schedule.IntervalConfig{
			Miles:       in.IntervalMiles,
			Days:        in.IntervalDays,
			Base:        in.IntervalBase,
			DueOdometer: in.DueOdometer,
		}, moto.CurrentMileage)
		if err != nil {
			return &ValidationError{Reason: err.Error()}
		}

		recurring := true
		if in.Recurring != nil {
			recurring = *in.Recurring
		}

		baseOdo := moto.CurrentMileage
		baseDate := today
		task = models.MaintenanceTask{
			MotorcycleID:  moto.ID,
			Name:          strings.TrimSpace(in.Name),
			Description:   in.Description,
			Priority:      priority,
			Recurring:     recurring,
			IntervalMiles: cfg.Miles,
			IntervalDays:  cfg.Days,
			IntervalBase:  cfg.Base,
			BaseOdometer:  &baseOdo,
			BaseDate:      &baseDate,
		}
		task = schedule.Recompute(task, moto.CurrentMileage, today)

		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("garage: create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask edits a task's descriptive fields and interval configuration.
// The base point is preserved; only the due-point cache is recomputed.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID uint, in TaskInput, today time.Time) (*models.MaintenanceTask, error) {
	var task models.MaintenanceTask
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, moto, err := ownedTask(tx, userID, taskID)
		if err != nil {
			return err
		}
		task = *t

		if strings.TrimSpace(in.Name) != "" {
			task.Name = strings.TrimSpace(in.Name)
		}
		if in.Description != "" {
			task.Description = in.Description
		}
		if in.Priority != "" {
			priority, err := normalizePriority(in.Priority)
			if err != nil {
				return err
			}
			task.Priority = priority
		}
		if in.Recurring != nil {
			task.Recurring = *in.Recurring
		}

		miles := coalesce(in.IntervalMiles, task.IntervalMiles)
		if in.DueOdometer != nil {
			// Absolute style replaces the mileage trigger outright.
			miles = in.IntervalMiles
		}
		cfg, err := schedule.Normalize(schedule.IntervalConfig{
			Miles:       miles,
			Days:        coalesce(in.IntervalDays, task.IntervalDays),
			Base:        firstNonEmpty(in.IntervalBase, task.IntervalBase),
			DueOdometer: in.DueOdometer,
		}, moto.CurrentMileage)
		if err != nil {
			return &ValidationError{Reason: err.Error()}
		}
		task.IntervalMiles = cfg.Miles
		task.IntervalDays = cfg.Days
		task.IntervalBase = cfg.Base

		// An absolute milestone re-anchors the cycle at the current
		// odometer so base + interval lands exactly on the milestone.
		if in.DueOdometer != nil {
			anchor := moto.CurrentMileage
			task.BaseOdometer = &anchor
		}

		task = schedule.Recompute(task, moto.CurrentMileage, today)
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("garage: update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ArchiveTask soft-removes a task from active views. Archived tasks are
// excluded from mileage recomputes and notifier sweeps.
func (s *Service) ArchiveTask(ctx context.Context, userID, taskID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, _, err := ownedTask(tx, userID, taskID)
		if err != nil {
			return err
		}
		if err := tx.Model(task).Update("archived", true).Error; err != nil {
			return fmt.Errorf("garage: archive task: %w", err)
		}
		return nil
	})
}

// DeleteTask hard-deletes a task. Historical service records are decoupled,
// not cascaded: their task reference is nulled and the rows are kept.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, _, err := ownedTask(tx, userID, taskID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.ServiceRecord{}).
			Where("task_id = ?", task.ID).
			Update("task_id", nil).Error; err != nil {
			return fmt.Errorf("garage: decouple service records: %w", err)
		}
		if err := tx.Delete(&models.TaskNotification{}, "task_id = ?", task.ID).Error; err != nil {
			return fmt.Errorf("garage: delete notification marker: %w", err)
		}
		if err := tx.Delete(task).Error; err != nil {
			return fmt.Errorf("garage: delete task: %w", err)
		}
		return nil
	})
}

// GetTask loads a task owned by the user.
func (s *Service) GetTask(ctx context.Context, userID, taskID uint) (*models.MaintenanceTask, error) {
	task, _, err := ownedTask(s.db.WithContext(ctx), userID, taskID)
	return task, err
}

// ListTasks returns the motorcycle's tasks, excluding archived ones unless
// requested.
func (s *Service) ListTasks(ctx context.Context, userID, motorcycleID uint, includeArchived bool) ([]models.MaintenanceTask, error) {
	if _, err := ownedMotorcycle(s.db.WithContext(ctx), userID, motorcycleID); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Where("motorcycle_id = ?", motorcycleID)
	if !includeArchived {
		q = q.Where("archived = ?", false)
	}
	var tasks []models.MaintenanceTask
	if err := q.Order("priority DESC, name ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("garage: list tasks: %w", err)
	}
	return tasks, nil
}

// ownedTask loads a task and its motorcycle, scoped to the owner. A task on
// another user's motorcycle reports not-found, never forbidden.
func ownedTask(tx *gorm.DB, userID, taskID uint) (*models.MaintenanceTask, *models.Motorcycle, error) {
	var task models.MaintenanceTask
	err := tx.First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, &NotFoundError{Resource: "task", ID: taskID}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("garage: load task: %w", err)
	}
	moto, err := ownedMotorcycle(tx, userID, task.MotorcycleID)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil, &NotFoundError{Resource: "task", ID: taskID}
		}
		return nil, nil, err
	}
	return &task, moto, nil
}

func normalizePriority(p string) (string, error) {
	switch p {
	case "":
		return models.PriorityMedium, nil
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return p, nil
	default:
		return "", validationf("unknown priority %q", p)
	}
}

func coalesce(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
