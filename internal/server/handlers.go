package server

import (
	"net/http"
	"time"

	"github.com/dmelton/wrenchlog/internal/garage"
	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/schedule"
	"github.com/dmelton/wrenchlog/internal/units"
	"github.com/gin-gonic/gin"
)

type motorcycleRequest struct {
	Name           string `json:"name"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	CurrentMileage int    `json:"current_mileage"`
	// Unit interprets CurrentMileage; defaults to the rider's preference.
	Unit string `json:"unit"`
}

func (h *handler) handleCreateMotorcycle(c *gin.Context) {
	var req motorcycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	unit, ok := h.inputUnit(c, req.Unit)
	if !ok {
		return
	}

	moto, err := h.garage.CreateMotorcycle(c.Request.Context(), currentUserID(c), garage.MotorcycleInput{
		Name:           req.Name,
		Make:           req.Make,
		Model:          req.Model,
		Year:           req.Year,
		CurrentMileage: units.FromInput(req.CurrentMileage, unit),
	})
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, moto)
}

func (h *handler) handleListMotorcycles(c *gin.Context) {
	motos, err := h.garage.ListMotorcycles(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, motos)
}

func (h *handler) handleGetMotorcycle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	moto, err := h.garage.GetMotorcycle(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, moto)
}

type taskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Recurring   *bool  `json:"recurring"`

	IntervalMiles *int   `json:"interval_miles"`
	IntervalDays  *int   `json:"interval_days"`
	IntervalBase  string `json:"interval_base"`
	DueOdometer   *int   `json:"due_odometer"`
	Unit          string `json:"unit"`
}

func (r taskRequest) toInput(unit string) garage.TaskInput {
	in := garage.TaskInput{
		Name:         r.Name,
		Description:  r.Description,
		Priority:     r.Priority,
		Recurring:    r.Recurring,
		IntervalDays: r.IntervalDays,
		IntervalBase: r.IntervalBase,
	}
	if r.IntervalMiles != nil {
		v := units.FromInput(*r.IntervalMiles, unit)
		in.IntervalMiles = &v
	}
	if r.DueOdometer != nil {
		v := units.FromInput(*r.DueOdometer, unit)
		in.DueOdometer = &v
	}
	return in
}

func (h *handler) handleCreateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	unit, ok := h.inputUnit(c, req.Unit)
	if !ok {
		return
	}

	task, err := h.garage.CreateTask(c.Request.Context(), currentUserID(c), id, req.toInput(unit), time.Now())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *handler) handleListTasks(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	includeArchived := c.Query("include_archived") == "true"
	tasks, err := h.garage.ListTasks(c.Request.Context(), currentUserID(c), id, includeArchived)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *handler) handleGetTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	task, err := h.garage.GetTask(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *handler) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	unit, ok := h.inputUnit(c, req.Unit)
	if !ok {
		return
	}

	task, err := h.garage.UpdateTask(c.Request.Context(), currentUserID(c), id, req.toInput(unit), time.Now())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *handler) handleArchiveTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.garage.ArchiveTask(c.Request.Context(), currentUserID(c), id); err != nil {
		h.serviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.garage.DeleteTask(c.Request.Context(), currentUserID(c), id); err != nil {
		h.serviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type mileageRequest struct {
	Mileage       int        `json:"mileage"`
	At            *time.Time `json:"at"`
	Notes         string     `json:"notes"`
	AllowRollback bool       `json:"allow_rollback"`
	Unit          string     `json:"unit"`
}

func (h *handler) handleMileageUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req mileageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	unit, ok := h.inputUnit(c, req.Unit)
	if !ok {
		return
	}

	update := garage.MileageUpdate{
		MotorcycleID:  id,
		NewMileage:    units.FromInput(req.Mileage, unit),
		Notes:         req.Notes,
		AllowRollback: req.AllowRollback,
	}
	if req.At != nil {
		update.At = *req.At
	}

	res, err := h.garage.ApplyMileageUpdate(c.Request.Context(), currentUserID(c), update)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"unchanged":     res.Unchanged,
		"motorcycle":    res.Motorcycle,
		"log":           res.Log,
		"updated_tasks": res.UpdatedTasks,
		"newly_due":     res.NewlyDue,
	})
}

type completionRequest struct {
	MotorcycleID uint       `json:"motorcycle_id"`
	TaskID       *uint      `json:"task_id"`
	Date         *time.Time `json:"date"`
	Mileage      *int       `json:"mileage"`
	CostCents    int64      `json:"cost_cents"`
	Notes        string     `json:"notes"`
	// ResetSchedule defaults to true: the completed task's cycle rebases at
	// the completion point unless the rider opts out.
	ResetSchedule *bool  `json:"reset_schedule"`
	AllowRollback bool   `json:"allow_rollback"`
	Unit          string `json:"unit"`
}

func (h *handler) handleCompletion(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.MotorcycleID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "motorcycle_id is required"})
		return
	}
	unit, ok := h.inputUnit(c, req.Unit)
	if !ok {
		return
	}

	in := garage.Completion{
		MotorcycleID:  req.MotorcycleID,
		TaskID:        req.TaskID,
		CostCents:     req.CostCents,
		Notes:         req.Notes,
		KeepSchedule:  req.ResetSchedule != nil && !*req.ResetSchedule,
		AllowRollback: req.AllowRollback,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	if req.Mileage != nil {
		v := units.FromInput(*req.Mileage, unit)
		in.Mileage = &v
	}

	res, err := h.garage.CompleteTask(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"record": res.Record,
		"task":   res.Task,
	})
}

func (h *handler) handleListRecords(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := h.garage.GetMotorcycle(c.Request.Context(), currentUserID(c), id); err != nil {
		h.serviceError(c, err)
		return
	}
	var records []models.ServiceRecord
	if err := h.db.Where("motorcycle_id = ?", id).Order("date DESC").Find(&records).Error; err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// taskScheduleView is one row of the schedule view, with distances converted
// to the rider's display unit.
type taskScheduleView struct {
	TaskID            uint       `json:"task_id"`
	Name              string     `json:"name"`
	Priority          string     `json:"priority"`
	DueMileage        *int       `json:"due_mileage"`
	DueDate           *time.Time `json:"due_date"`
	RemainingDistance *int       `json:"remaining_distance"`
	CompletionPercent *float64   `json:"completion_percent"`
	IsDue             bool       `json:"is_due"`
}

func (h *handler) handleSchedule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := h.currentUser(c)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	moto, err := h.garage.GetMotorcycle(c.Request.Context(), user.ID, id)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	tasks, err := h.garage.ListTasks(c.Request.Context(), user.ID, id, false)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	now := time.Now()
	views := make([]taskScheduleView, 0, len(tasks))
	for _, task := range tasks {
		v := schedule.Compute(schedule.InputForTask(task, moto.CurrentMileage, now))
		views = append(views, taskScheduleView{
			TaskID:            task.ID,
			Name:              task.Name,
			Priority:          task.Priority,
			DueMileage:        units.ToDisplayPtr(v.DueMileage, user.DistanceUnit),
			DueDate:           v.DueDate,
			RemainingDistance: units.ToDisplayPtr(v.RemainingMiles, user.DistanceUnit),
			CompletionPercent: v.CompletionPercent,
			IsDue:             v.IsDue,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"motorcycle_id":   moto.ID,
		"current_mileage": units.ToDisplay(moto.CurrentMileage, user.DistanceUnit),
		"unit":            user.DistanceUnit,
		"tasks":           views,
	})
}

func (h *handler) handleSweep(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweep is not configured"})
		return
	}
	res, err := h.notifier.Sweep(c.Request.Context(), currentUserID(c), time.Now())
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"skipped":  res.Skipped,
		"due":      len(res.DueTasks),
		"notified": res.NotificationsTriggered,
	})
}

// inputUnit resolves the unit a request's distances are expressed in: an
// explicit override when given, otherwise the rider's stored preference.
func (h *handler) inputUnit(c *gin.Context, override string) (string, bool) {
	switch override {
	case models.UnitMiles, models.UnitKilometers:
		return override, true
	case "":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit must be mi or km"})
		return "", false
	}
	user, err := h.currentUser(c)
	if err != nil {
		h.serviceError(c, err)
		return "", false
	}
	return user.DistanceUnit, true
}
