package models

import "time"

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Interval base modes. BaseCurrent anchors each cycle to wherever the last
// one started counting from; BaseZero snaps due points to fixed multiples of
// the interval, ignoring history.
const (
	BaseCurrent = "current"
	BaseZero    = "zero"
)

// MaintenanceTask is a recurring or one-shot service item on a motorcycle.
//
// IntervalMiles/IntervalDays define the recurrence; BaseOdometer/BaseDate are
// the snapshot the current cycle is anchored to. NextDueOdometer/NextDueDate
// are a cache of the schedule calculator's output, never a source of truth:
// every write path that changes an input recomputes them in the same
// transaction.
type MaintenanceTask struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	MotorcycleID uint   `gorm:"not null;index" json:"motorcycle_id"`
	Name         string `gorm:"size:128;not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	Priority     string `gorm:"size:8;default:medium" json:"priority"`
	Recurring    bool   `gorm:"default:true" json:"recurring"`
	Archived     bool   `gorm:"default:false;index" json:"archived"`

	IntervalMiles   *int       `json:"interval_miles"`
	IntervalDays    *int       `json:"interval_days"`
	IntervalBase    string     `gorm:"size:8;default:current" json:"interval_base"`
	BaseOdometer    *int       `json:"base_odometer"`
	BaseDate        *time.Time `json:"base_date"`
	NextDueOdometer *int       `json:"next_due_odometer"`
	NextDueDate     *time.Time `json:"next_due_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
