package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmelton/wrenchlog/internal/garage"
	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Motorcycle{},
		&models.MaintenanceTask{},
		&models.MileageLog{},
		&models.ServiceRecord{},
		&models.SweepState{},
		&models.TaskNotification{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)
	router, err := NewRouter(StartOpts{
		DB:        db,
		Garage:    garage.New(db, garage.Options{}),
		Notifier:  notify.NewNotifier(db, time.Hour, nil, log),
		JWTSecret: "test-secret",
		Log:       log,
	})
	require.NoError(t, err)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, router *gin.Engine, email, unit string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":          "alice",
		"email":         email,
		"password":      "hunter2hunter2",
		"distance_unit": unit,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createMotorcycle(t *testing.T, router *gin.Engine, token string, mileage int) uint {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/motorcycles", token, gin.H{
		"name":            "SV650",
		"current_mileage": mileage,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["id"].(float64))
}

func TestNewRouter_Validation(t *testing.T) {
	_, err := NewRouter(StartOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is required")
}

func TestRegisterAndLogin(t *testing.T) {
	router, _ := newTestRouter(t)

	token := registerUser(t, router, "alice@example.com", "")
	assert.NotEmpty(t, token)

	// Duplicate email is rejected.
	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "alice", "email": "alice@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Weak passwords are rejected.
	w = doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "bob", "email": "bob@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/motorcycles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/motorcycles", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Health stays open.
	w = doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMotorcycleOwnership(t *testing.T) {
	router, _ := newTestRouter(t)
	alice := registerUser(t, router, "alice@example.com", "")
	mallory := registerUser(t, router, "mallory@example.com", "")

	motoID := createMotorcycle(t, router, alice, 8000)

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/motorcycles/%d", motoID), alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Another user's motorcycle reads as not-found, never forbidden.
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/motorcycles/%d", motoID), mallory, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskAndScheduleView(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerUser(t, router, "alice@example.com", "")
	motoID := createMotorcycle(t, router, token, 8000)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/motorcycles/%d/tasks", motoID), token, gin.H{
		"name":           "Oil change",
		"priority":       "high",
		"interval_miles": 3000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode(t, w)
	assert.Equal(t, float64(11000), task["next_due_odometer"])

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/motorcycles/%d/schedule", motoID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Equal(t, "mi", view["unit"])
	assert.Equal(t, float64(8000), view["current_mileage"])

	tasks := view["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	row := tasks[0].(map[string]interface{})
	assert.Equal(t, float64(11000), row["due_mileage"])
	assert.Equal(t, float64(3000), row["remaining_distance"])
	assert.Equal(t, false, row["is_due"])
}

func TestKilometerRider(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerUser(t, router, "metric@example.com", "km")
	motoID := createMotorcycle(t, router, token, 0)

	// Distances arrive in the rider's unit and come back in it; storage
	// stays in miles in between.
	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/motorcycles/%d/tasks", motoID), token, gin.H{
		"name":           "Chain lube",
		"interval_miles": 3000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/motorcycles/%d/schedule", motoID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Equal(t, "km", view["unit"])

	tasks := view["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	row := tasks[0].(map[string]interface{})
	assert.Equal(t, float64(3000), row["due_mileage"])
}

func TestMileageEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerUser(t, router, "alice@example.com", "")
	motoID := createMotorcycle(t, router, token, 9000)
	path := fmt.Sprintf("/api/motorcycles/%d/mileage", motoID)

	// Decreases are rejected without an explicit rollback.
	w := doJSON(t, router, http.MethodPost, path, token, gin.H{"mileage": 8000})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "rollback")

	w = doJSON(t, router, http.MethodPost, path, token, gin.H{"mileage": 8000, "allow_rollback": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Repeating the same reading is a no-op.
	w = doJSON(t, router, http.MethodPost, path, token, gin.H{"mileage": 8000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["unchanged"])
}

func TestCompletionEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerUser(t, router, "alice@example.com", "")
	motoID := createMotorcycle(t, router, token, 8000)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/motorcycles/%d/tasks", motoID), token, gin.H{
		"name":           "Oil change",
		"interval_miles": 3000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	taskID := uint(decode(t, w)["id"].(float64))

	// Default reset: the cycle rebases at the completion mileage.
	w = doJSON(t, router, http.MethodPost, "/api/completions", token, gin.H{
		"motorcycle_id": motoID,
		"task_id":       taskID,
		"mileage":       10000,
		"cost_cents":    4500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode(t, w)

	record := res["record"].(map[string]interface{})
	assert.Equal(t, float64(10000), record["mileage"])

	task := res["task"].(map[string]interface{})
	assert.Equal(t, float64(13000), task["next_due_odometer"])
	assert.Equal(t, float64(10000), task["base_odometer"])
}

func TestSweepEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := registerUser(t, router, "alice@example.com", "")
	motoID := createMotorcycle(t, router, token, 8000)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/motorcycles/%d/tasks", motoID), token, gin.H{
		"name":           "Oil change",
		"due_odometer":   8100,
		"interval_miles": nil,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Push the odometer past the due point, then sweep.
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/motorcycles/%d/mileage", motoID), token, gin.H{
		"mileage": 8200,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/sweep", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode(t, w)
	assert.Equal(t, false, res["skipped"])
	assert.Equal(t, float64(1), res["due"])

	// A second sweep inside the window is gated.
	w = doJSON(t, router, http.MethodPost, "/api/sweep", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["skipped"])
}
