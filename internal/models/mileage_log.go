package models

import "time"

// MileageLog records a single odometer update. Rows are append-only;
// near-duplicate updates (same motorcycle, same new mileage, within the
// configured dedup window) reuse the existing row instead of creating one.
type MileageLog struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MotorcycleID    uint      `gorm:"not null;index" json:"motorcycle_id"`
	PreviousMileage int       `json:"previous_mileage"`
	NewMileage      int       `gorm:"not null;index" json:"new_mileage"`
	RecordedAt      time.Time `gorm:"not null;index" json:"recorded_at"`
	Notes           string    `gorm:"type:text" json:"notes"`
}
