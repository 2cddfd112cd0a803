package models

import "time"

// Distance units accepted for display preferences. Storage is unit-agnostic;
// conversion happens only at the presentation boundary.
const (
	UnitMiles      = "mi"
	UnitKilometers = "km"
)

// User owns motorcycles and receives due-task notifications.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Email        string    `gorm:"size:256;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	DistanceUnit string    `gorm:"size:4;default:mi" json:"distance_unit"`
	CreatedAt    time.Time `json:"created_at"`

	Motorcycles []Motorcycle `gorm:"foreignKey:UserID" json:"motorcycles,omitempty"`
}
