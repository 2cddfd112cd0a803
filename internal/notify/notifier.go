package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/schedule"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultSweepWindow is the minimum gap between sweeps for the same user.
const DefaultSweepWindow = time.Hour

// Notifier runs the periodic due-task sweep. It is safe to run concurrently
// across different users; overlapping sweeps for the same user are
// suppressed via the SweepState row.
type Notifier struct {
	db     *gorm.DB
	window time.Duration
	events *Dispatcher
	log    *logrus.Logger
}

// NewNotifier creates a Notifier. events may be nil when no sinks are
// configured; due tasks are then still reported, just not delivered.
func NewNotifier(db *gorm.DB, window time.Duration, events *Dispatcher, log *logrus.Logger) *Notifier {
	if window <= 0 {
		window = DefaultSweepWindow
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{db: db, window: window, events: events, log: log}
}

// SweepResult reports the outcome of one sweep.
type SweepResult struct {
	// Skipped is true when the per-user window gate or an in-flight sweep
	// suppressed this run.
	Skipped                bool
	DueTasks               []models.MaintenanceTask
	NotificationsTriggered int
}

// Sweep evaluates all of a user's active recurring tasks against the
// schedule calculator and notifies each task found due, once per due
// transition. Repeated sweeps while a task remains due do not re-notify; the
// per-task marker is cleared when the task leaves the due state, re-arming
// it for the next cycle.
func (n *Notifier) Sweep(ctx context.Context, userID uint, now time.Time) (*SweepResult, error) {
	res := &SweepResult{}

	gated, err := n.acquireGate(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if gated {
		res.Skipped = true
		return res, nil
	}
	defer n.releaseGate(userID)

	var motorcycles []models.Motorcycle
	if err := n.db.WithContext(ctx).Where("user_id = ?", userID).Find(&motorcycles).Error; err != nil {
		return nil, fmt.Errorf("notify: load motorcycles: %w", err)
	}

	for _, moto := range motorcycles {
		var tasks []models.MaintenanceTask
		if err := n.db.WithContext(ctx).
			Where("motorcycle_id = ? AND archived = ? AND recurring = ?", moto.ID, false, true).
			Find(&tasks).Error; err != nil {
			return nil, fmt.Errorf("notify: load tasks: %w", err)
		}

		for _, task := range tasks {
			v := schedule.Compute(schedule.InputForTask(task, moto.CurrentMileage, now))
			if !v.IsDue {
				n.rearm(ctx, task.ID)
				continue
			}
			res.DueTasks = append(res.DueTasks, task)

			notified, err := n.markNotified(ctx, userID, task.ID, now)
			if err != nil {
				return nil, err
			}
			if !notified {
				continue
			}
			res.NotificationsTriggered++
			if n.events != nil {
				n.events.Publish(ctx, dueEvent(userID, moto, task, v))
			}
		}
	}

	return res, nil
}

// acquireGate claims the per-user sweep slot. Returns true when the sweep
// should be skipped.
func (n *Notifier) acquireGate(ctx context.Context, userID uint, now time.Time) (bool, error) {
	gated := false
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st models.SweepState
		err := tx.First(&st, "user_id = ?", userID).Error
		switch {
		case err == nil:
			if st.InProgress || now.Sub(st.LastSweepAt) < n.window {
				gated = true
				return nil
			}
			return tx.Model(&models.SweepState{}).Where("user_id = ?", userID).
				Updates(map[string]interface{}{"last_sweep_at": now, "in_progress": true}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.SweepState{UserID: userID, LastSweepAt: now, InProgress: true}).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("notify: sweep gate for user %d: %w", userID, err)
	}
	return gated, nil
}

func (n *Notifier) releaseGate(userID uint) {
	if err := n.db.Model(&models.SweepState{}).Where("user_id = ?", userID).
		Update("in_progress", false).Error; err != nil {
		n.log.WithError(err).WithField("user", userID).Warn("release sweep gate failed")
	}
}

// markNotified records the due transition for a task. Returns false when a
// marker already exists, i.e. this transition was already notified.
func (n *Notifier) markNotified(ctx context.Context, userID, taskID uint, now time.Time) (bool, error) {
	var marker models.TaskNotification
	err := n.db.WithContext(ctx).First(&marker, "task_id = ?", taskID).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("notify: marker lookup: %w", err)
	}
	marker = models.TaskNotification{TaskID: taskID, UserID: userID, NotifiedAt: now}
	if err := n.db.WithContext(ctx).Create(&marker).Error; err != nil {
		return false, fmt.Errorf("notify: create marker: %w", err)
	}
	return true, nil
}

// rearm clears any notification marker for a task that is no longer due.
func (n *Notifier) rearm(ctx context.Context, taskID uint) {
	if err := n.db.WithContext(ctx).
		Delete(&models.TaskNotification{}, "task_id = ?", taskID).Error; err != nil {
		n.log.WithError(err).WithField("task", taskID).Warn("rearm notification marker failed")
	}
}

// dueEvent formats a "maintenance task due" notification.
func dueEvent(userID uint, moto models.Motorcycle, task models.MaintenanceTask, v schedule.View) Event {
	severity := "info"
	if task.Priority == models.PriorityHigh {
		severity = "warning"
	}
	ev := Event{
		Type:     EventTaskDue,
		UserID:   userID,
		Title:    fmt.Sprintf("Maintenance due: %s", task.Name),
		Body:     fmt.Sprintf("%s is due on %s.", task.Name, moto.Name),
		Severity: severity,
		Fields: []Field{
			{Name: "Motorcycle", Value: moto.Name},
			{Name: "Priority", Value: task.Priority},
		},
	}
	if v.DueMileage != nil {
		ev.Fields = append(ev.Fields, Field{Name: "Due at", Value: fmt.Sprintf("%d", *v.DueMileage)})
	}
	if v.DueDate != nil {
		ev.Fields = append(ev.Fields, Field{Name: "Due on", Value: v.DueDate.Format("2006-01-02")})
	}
	return ev
}

// SweepAll sweeps every user. Per-user failures are logged and do not stop
// the run.
func (n *Notifier) SweepAll(ctx context.Context, now time.Time) {
	var users []models.User
	if err := n.db.WithContext(ctx).Find(&users).Error; err != nil {
		n.log.WithError(err).Error("sweep: load users failed")
		return
	}
	for _, u := range users {
		res, err := n.Sweep(ctx, u.ID, now)
		if err != nil {
			n.log.WithError(err).WithField("user", u.ID).Error("sweep failed")
			continue
		}
		if !res.Skipped && len(res.DueTasks) > 0 {
			n.log.WithFields(logrus.Fields{
				"user":     u.ID,
				"due":      len(res.DueTasks),
				"notified": res.NotificationsTriggered,
			}).Info("sweep completed")
		}
	}
}

// Start schedules SweepAll on the given 5-field cron expression and runs it
// until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context, expr string) (*cron.Cron, error) {
	if _, err := ParseCron(expr); err != nil {
		return nil, err
	}
	c := cron.New(cron.WithParser(cronParser))
	if _, err := c.AddFunc(expr, func() {
		n.SweepAll(context.Background(), time.Now())
	}); err != nil {
		return nil, fmt.Errorf("notify: schedule sweep: %w", err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c, nil
}
