package garage

import (
	"testing"
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Motorcycle{},
		&models.MaintenanceTask{},
		&models.MileageLog{},
		&models.ServiceRecord{},
		&models.SweepState{},
		&models.TaskNotification{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedRider(t *testing.T, db *gorm.DB, mileage int) (models.User, models.Motorcycle) {
	t.Helper()
	user := models.User{Name: "alice", Email: "alice@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	moto := models.Motorcycle{UserID: user.ID, Name: "SV650", CurrentMileage: mileage}
	if err := db.Create(&moto).Error; err != nil {
		t.Fatalf("seed motorcycle: %v", err)
	}
	return user, moto
}

func intPtr(v int) *int { return &v }

func uintPtr(v uint) *uint { return &v }

func boolPtr(v bool) *bool { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedTask inserts a task with a derived due cache, bypassing CreateTask so
// tests control every field.
func seedTask(t *testing.T, db *gorm.DB, task models.MaintenanceTask) models.MaintenanceTask {
	t.Helper()
	if task.IntervalBase == "" {
		task.IntervalBase = models.BaseCurrent
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	task.Recurring = true
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}
