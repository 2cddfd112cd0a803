package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmelton/wrenchlog/internal/garage"
	"github.com/dmelton/wrenchlog/internal/models"
	"github.com/dmelton/wrenchlog/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// handler carries the dependencies shared by all route handlers.
type handler struct {
	db       *gorm.DB
	garage   *garage.Service
	notifier *notify.Notifier
	auth     *authService
	log      *logrus.Logger
}

const userIDKey = "userID"

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/auth/register", h.handleRegister)
	router.POST("/api/auth/login", h.handleLogin)

	api := router.Group("/api", h.requireAuth)
	{
		api.GET("/me", h.handleMe)

		api.GET("/motorcycles", h.handleListMotorcycles)
		api.POST("/motorcycles", h.handleCreateMotorcycle)
		api.GET("/motorcycles/:id", h.handleGetMotorcycle)
		api.GET("/motorcycles/:id/schedule", h.handleSchedule)
		api.POST("/motorcycles/:id/mileage", h.handleMileageUpdate)
		api.GET("/motorcycles/:id/tasks", h.handleListTasks)
		api.POST("/motorcycles/:id/tasks", h.handleCreateTask)
		api.GET("/motorcycles/:id/records", h.handleListRecords)

		api.GET("/tasks/:id", h.handleGetTask)
		api.PATCH("/tasks/:id", h.handleUpdateTask)
		api.POST("/tasks/:id/archive", h.handleArchiveTask)
		api.DELETE("/tasks/:id", h.handleDeleteTask)

		api.POST("/completions", h.handleCompletion)
		api.POST("/sweep", h.handleSweep)
	}
}

// requireAuth validates the bearer token and stores the user id in the
// request context.
func (h *handler) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
		return
	}
	userID, err := h.auth.validateToken(header)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

// currentUserID returns the authenticated user id set by requireAuth.
func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}

// currentUser loads the authenticated user's record.
func (h *handler) currentUser(c *gin.Context) (*models.User, error) {
	var user models.User
	if err := h.db.First(&user, currentUserID(c)).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// serviceError maps garage errors onto HTTP status codes. Validation
// failures are the client's fault; unknown resources report not-found even
// when they exist under another user.
func (h *handler) serviceError(c *gin.Context, err error) {
	switch {
	case garage.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case garage.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// pathID parses the numeric :id path parameter.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DistanceUnit string `json:"distance_unit"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if err := validateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit := req.DistanceUnit
	switch unit {
	case "":
		unit = models.UnitMiles
	case models.UnitMiles, models.UnitKilometers:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "distance_unit must be mi or km"})
		return
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := h.auth.hashPassword(req.Password)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		DistanceUnit: unit,
	}
	if err := h.db.Create(&user).Error; err != nil {
		h.serviceError(c, err)
		return
	}

	token, err := h.auth.generateToken(user.ID)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	var user models.User
	err := h.db.Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !h.auth.checkPassword(req.Password, user.PasswordHash)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials.Error()})
		return
	}
	if err != nil {
		h.serviceError(c, err)
		return
	}

	token, err := h.auth.generateToken(user.ID)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

func (h *handler) handleMe(c *gin.Context) {
	user, err := h.currentUser(c)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
