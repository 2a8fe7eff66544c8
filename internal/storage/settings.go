package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reef-labs/reefd/internal/models"
	"gorm.io/gorm"
)

// GetSettings retrieves the settings row, creating it with defaults on first
// access.
func (d *Database) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := d.db.WithContext(ctx).First(&settings).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.Settings{
			AuthEnabled: true,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := d.db.WithContext(ctx).Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return &settings, nil
}

// UpdateSettings persists changes to the settings row
func (d *Database) UpdateSettings(ctx context.Context, settings *models.Settings) error {
	settings.UpdatedAt = time.Now()

	result := d.db.WithContext(ctx).Save(settings)
	if result.Error != nil {
		return fmt.Errorf("failed to update settings: %w", result.Error)
	}

	return nil
}
