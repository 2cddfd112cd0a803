package garage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmelton/wrenchlog/internal/models"
	"gorm.io/gorm"
)

// MotorcycleInput holds user-supplied fields for registering a motorcycle.
type MotorcycleInput struct {
	Name           string
	Make           string
	Model          string
	Year           int
	CurrentMileage int
}

// CreateMotorcycle registers a motorcycle for the user.
func (s *Service) CreateMotorcycle(ctx context.Context, userID uint, in MotorcycleInput) (*models.Motorcycle, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationf("motorcycle name is required")
	}
	if in.CurrentMileage < 0 {
		return nil, validationf("current mileage must not be negative, got %d", in.CurrentMileage)
	}

	moto := models.Motorcycle{
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Make:           in.Make,
		Model:          in.Model,
		Year:           in.Year,
		CurrentMileage: in.CurrentMileage,
	}
	if err := s.db.WithContext(ctx).Create(&moto).Error; err != nil {
		return nil, fmt.Errorf("garage: create motorcycle: %w", err)
	}
	return &moto, nil
}

// GetMotorcycle loads a motorcycle owned by the user.
func (s *Service) GetMotorcycle(ctx context.Context, userID, motorcycleID uint) (*models.Motorcycle, error) {
	return ownedMotorcycle(s.db.WithContext(ctx), userID, motorcycleID)
}

// ListMotorcycles returns all of the user's motorcycles.
func (s *Service) ListMotorcycles(ctx context.Context, userID uint) ([]models.Motorcycle, error) {
	var motos []models.Motorcycle
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&motos).Error; err != nil {
		return nil, fmt.Errorf("garage: list motorcycles: %w", err)
	}
	return motos, nil
}

// ownedMotorcycle loads a motorcycle scoped to its owner.
func ownedMotorcycle(tx *gorm.DB, userID, motorcycleID uint) (*models.Motorcycle, error) {
	var moto models.Motorcycle
	err := tx.Where("id = ? AND user_id = ?", motorcycleID, userID).First(&moto).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "motorcycle", ID: motorcycleID}
	}
	if err != nil {
		return nil, fmt.Errorf("garage: load motorcycle: %w", err)
	}
	return &moto, nil
}
