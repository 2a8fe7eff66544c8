package models

import "time"

// APIKey is a credential for the REST API. The key value is returned exactly
// once, at creation time, and is masked everywhere else.
type APIKey struct {
	ID        int64     `json:"id" db:"id" gorm:"primaryKey"`
	Name      string    `json:"name" db:"name" gorm:"column:name;not null;uniqueIndex"`
	Key       string    `json:"-" db:"key" gorm:"column:key;not null"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (APIKey) TableName() string {
	return "api_keys"
}

// APIKeyResponse is the API representation of a stored key.
type APIKeyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts an APIKey to its masked API representation.
func (k *APIKey) ToResponse() APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt,
	}
}

// Settings represents the application settings stored in the database.
// These settings can be updated at runtime without requiring a server restart.
type Settings struct {
	ID int64 `json:"id" db:"id" gorm:"primaryKey"`

	// Auth settings
	AuthEnabled bool `json:"auth_enabled" db:"auth_enabled" gorm:"column:auth_enabled;not null;default:true"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (Settings) TableName() string {
	return "settings"
}
