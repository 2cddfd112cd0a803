package garage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/notify"
)

func TestApplyMileageUpdate_UnchangedIsNoOp(t *testing.T) {
	db := openTestDB(t)
	user, moto := seedRider(t, db, 5000)
	svc := New(db, Options{})
	ctx := context.Background()

	res, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID,
		NewMileage:   5000,
		At:           date(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("ApplyMileageUpdate: %v", err)
	}
	if !res.Unchanged {
		t.Error("Unchanged = false, want true")
	}
	if res.Log != nil {
		t.Error("expected no log entry for unchanged mileage")
	}
	if len(res.UpdatedTasks) != 0 {
		t.Errorf("UpdatedTasks = %d, want 0", len(res.UpdatedTasks))
	}

	var count int64
	db.Model(&models.MileageLog{}).Count(&count)
	if count != 0 {
		t.Errorf("mileage log rows = %d, want 0", count)
	}
}

func TestApplyMileageUpdate_RecomputesWithoutRebasing(t *testing.T) {
	db := openTestDB(t)
	user, moto := seedRider(t, db, 4500)
	svc := New(db, Options{})
	ctx := context.Background()

	// Zero-based task: the due point tracks the odometer across milestones.
	task := seedTask(t, db, models.MaintenanceTask{
		MotorcycleID:    moto.ID,
		Name:            "Valve check",
		IntervalMiles:   intPtr(6000),
		IntervalBase:    models.BaseZero,
		BaseOdometer:    intPtr(0),
		NextDueOdometer: intPtr(6000),
	})

	res, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID,
		NewMileage:   7200,
		At:           date(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("ApplyMileageUpdate: %v", err)
	}
	if len(res.UpdatedTasks) != 1 {
		t.Fatalf("UpdatedTasks = %d, want 1", len(res.UpdatedTasks))
	}

	var got models.MaintenanceTask
	if err := db.First(&got, task.ID).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if got.NextDueOdometer == nil || *got.NextDueOdometer != 12000 {
		t.Errorf("NextDueOdometer = %v, want 12000", got.NextDueOdometer)
	}
	// The base never moves on a mileage update.
	if got.BaseOdometer == nil || *got.BaseOdometer != 0 {
		t.Errorf("BaseOdometer = %v, want 0", got.BaseOdometer)
	}

	var moto2 models.Motorcycle
	db.First(&moto2, moto.ID)
	if moto2.CurrentMileage != 7200 {
		t.Errorf("CurrentMileage = %d, want 7200", moto2.CurrentMileage)
	}
}

func TestApplyMileageUpdate_NewlyDueDetection(t *testing.T) {
	db := openTestDB(t)
	user, moto := seedRider(t, db, 7000)
	svc := New(db, Options{})
	ctx := context.Background()

	task := seedTask(t, db, models.MaintenanceTask{
		MotorcycleID:    moto.ID,
		Name:            "Oil change",
		IntervalMiles:   intPtr(3000),
		BaseOdometer:    intPtr(5000),
		NextDueOdometer: intPtr(8000),
	})

	// 7000 -> 8000 crosses the due point: reported as newly due.
	res, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 8000, At: date(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("ApplyMileageUpdate: %v", err)
	}
	if len(res.NewlyDue) != 1 || res.NewlyDue[0].ID != task.ID {
		t.Fatalf("NewlyDue = %v, want exactly task %d", res.NewlyDue, task.ID)
	}

	// 8000 -> 8100: still due, but not a new transition.
	res, err = svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 8100, At: date(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("ApplyMileageUpdate: %v", err)
	}
	if len(res.NewlyDue) != 0 {
		t.Errorf("NewlyDue = %d, want 0 for an already-due task", len(res.NewlyDue))
	}
	if len(res.UpdatedTasks) != 1 {
		t.Errorf("UpdatedTasks = %d, want 1", len(res.UpdatedTasks))
	}
}

func TestApplyMileageUpdate_SkipsArchivedTasks(t *testing.T) {
	db := openTestDB(t)
	user, moto := seedRider(t, db, 1000)
	svc := New(db, Options{})

	seedTask(t, db, models.MaintenanceTask{
		MotorcycleID:  moto.ID,
		Name:          "Old task",
		IntervalMiles: intPtr(500),
		BaseOdometer:  intPtr(1000),
		Archived:      true,
	})

	res, err := svc.ApplyMileageUpdate(context.Background(), user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 2000, At: date(2025, 6, 1),
	})
	if err != nil {
		t.Fatalf("ApplyMileageUpdate: %v", err)
	}
	if len(res.UpdatedTasks) != 0 {
		t.Errorf("UpdatedTasks = %d, want archived tasks skipped", len(res.UpdatedTasks))
	}
}

func TestApplyMileageUpdate_RejectsDecrease(t *testing.T) {
	db := openTestDB(t)
	user, moto := seedRider(t, db, 9000)
	svc := New(db, Options{})
	ctx := context.Background()

	_, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 8000, At: date(2025, 6, 1),
	})
	if !IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if !strings.Contains(err.Error(), "rollback") {
		t.Errorf("error = %q, want to mention rollback", err.Error())
	}

	// The same decrease succeeds as an explicit rollback.
	res, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 8000, At: date(2025, 6, 1), AllowRollback: true,
	})
	if err != nil {
		t.Fatalf("rollback update: %v", err)
	}
	if res.Motorcycle.CurrentMileage != 8000 {
		t.Errorf("CurrentMileage = %d, want 8000", res.Motorcycle.CurrentMileage)
	}
}

func TestApplyMileageUpdate_DedupReusesEntry(t *testing.T) {
	db := openTestDB(t)
	user, moto := seedRider(t, db, 5000)
	svc := New(db, Options{DedupWindow: 60 * time.Second})
	ctx := context.Background()
	at := date(2025, 6, 1)

	first, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 5200, At: at,
	})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Roll back, then hit the same value again within the window: the
	// original entry is reused, not duplicated.
	if _, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 5100, At: at.Add(10 * time.Second), AllowRollback: true,
	}); err != nil {
		t.Fatalf("rollback update: %v", err)
	}
	second, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 5200, At: at.Add(30 * time.Second),
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.Log.ID != first.Log.ID {
		t.Errorf("log entry %d, want reused entry %d", second.Log.ID, first.Log.ID)
	}

	var count int64
	db.Model(&models.MileageLog{}).Where("new_mileage = ?", 5200).Count(&count)
	if count != 1 {
		t.Errorf("entries for 5200 = %d, want 1", count)
	}
}

func TestApplyMileageUpdate_NotFoundForOtherUser(t *testing.T) {
	db := openTestDB(t)
	_, moto := seedRider(t, db, 5000)
	intruder := models.User{Name: "mallory", Email: "mallory@example.com"}
	if err := db.Create(&intruder).Error; err != nil {
		t.Fatalf("seed intruder: %v", err)
	}
	svc := New(db, Options{})

	_, err := svc.ApplyMileageUpdate(context.Background(), intruder.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 6000,
	})
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestApplyMileageUpdate_EmitsSingleEvent(t *testing.T) {
	db := openTestDB(t)
	user, moto := seedRider(t, db, 5000)
	mock := notify.NewMockAdapter("mock")
	svc := New(db, Options{Events: notify.NewDispatcher(nil, mock)})
	ctx := context.Background()

	seedTask(t, db, models.MaintenanceTask{
		MotorcycleID: moto.ID, Name: "Oil change",
		IntervalMiles: intPtr(3000), BaseOdometer: intPtr(5000), NextDueOdometer: intPtr(8000),
	})

	if _, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 9000, At: date(2025, 6, 1),
	}); err != nil {
		t.Fatalf("ApplyMileageUpdate: %v", err)
	}

	events := mock.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly one mileage_updated", len(events))
	}
	if events[0].Type != notify.EventMileageUpdated {
		t.Errorf("event type = %q, want %q", events[0].Type, notify.EventMileageUpdated)
	}

	// An unchanged update emits nothing.
	if _, err := svc.ApplyMileageUpdate(ctx, user.ID, MileageUpdate{
		MotorcycleID: moto.ID, NewMileage: 9000, At: date(2025, 6, 1),
	}); err != nil {
		t.Fatalf("ApplyMileageUpdate: %v", err)
	}
	if got := len(mock.Events()); got != 1 {
		t.Errorf("events after no-op = %d, want still 1", got)
	}
}
