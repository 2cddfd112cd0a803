package models

import "time"

// SweepState gates the due-task notifier to one sweep per user per window
// and suppresses overlapping sweeps for the same user.
type SweepState struct {
	UserID      uint `gorm:"primaryKey"`
	LastSweepAt time.Time
	InProgress  bool `gorm:"default:false"`
	UpdatedAt   time.Time
}

// TaskNotification marks that a due notification has been delivered for a
// task's current due transition. The row is removed when the task leaves the
// due state, re-arming the notification for the next cycle.
type TaskNotification struct {
	TaskID     uint `gorm:"primaryKey"`
	UserID     uint `gorm:"index"`
	NotifiedAt time.Time
}
