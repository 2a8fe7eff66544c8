package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reef-labs/reefd/internal/models"
	"gorm.io/gorm"
)

// CreateAPIKey stores a new API key. Names are unique.
func (d *Database) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if key.Name == "" {
		return fmt.Errorf("key name is required")
	}
	if key.Key == "" {
		return fmt.Errorf("key value is required")
	}

	now := time.Now()
	key.CreatedAt = now
	key.UpdatedAt = now

	result := d.db.WithContext(ctx).Create(key)
	if result.Error != nil {
		return fmt.Errorf("failed to create API key: %w", result.Error)
	}

	return nil
}

// GetAPIKeyByName retrieves an API key by its unique name
func (d *Database) GetAPIKeyByName(ctx context.Context, name string) (*models.APIKey, error) {
	var key models.APIKey
	err := d.db.WithContext(ctx).Where("name = ?", name).First(&key).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	return &key, nil
}

// ListAPIKeys retrieves all API keys ordered by name
func (d *Database) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	err := d.db.WithContext(ctx).Order("name").Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	return keys, nil
}

// DeleteAPIKeyByName removes an API key. Returns false when no key with the
// given name exists.
func (d *Database) DeleteAPIKeyByName(ctx context.Context, name string) (bool, error) {
	result := d.db.WithContext(ctx).Where("name = ?", name).Delete(&models.APIKey{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete API key: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
