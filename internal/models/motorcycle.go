package models

import "time"

// Motorcycle is a tracked vehicle. CurrentMileage is an opaque linear
// distance value, monotonic non-decreasing under normal operation; it is
// mutated only by the mileage-update and service-completion flows.
type Motorcycle struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint   `gorm:"not null;index" json:"user_id"`
	Name           string `gorm:"size:128;not null" json:"name"`
	Make           string `gorm:"size:64" json:"make"`
	Model          string `gorm:"size:64" json:"model"`
	Year           int    `json:"year"`
	CurrentMileage int    `gorm:"not null;default:0" json:"current_mileage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Tasks       []MaintenanceTask `gorm:"foreignKey:MotorcycleID" json:"tasks,omitempty"`
	MileageLogs []MileageLog      `gorm:"foreignKey:MotorcycleID" json:"mileage_logs,omitempty"`
	Records     []ServiceRecord   `gorm:"foreignKey:MotorcycleID" json:"records,omitempty"`
}
