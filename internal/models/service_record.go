package models

import "time"

// ServiceRecord is an immutable log of completed service. TaskID is optional
// and decoupled, not cascaded: deleting a task nulls the reference and keeps
// the history.
type ServiceRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MotorcycleID uint      `gorm:"not null;index" json:"motorcycle_id"`
	TaskID       *uint     `gorm:"index;constraint:OnDelete:SET NULL" json:"task_id"`
	Date         time.Time `json:"date"`
	Mileage      int       `json:"mileage"`
	CostCents    int64     `json:"cost_cents"`
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}
