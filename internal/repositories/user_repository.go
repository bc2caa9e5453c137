package repositories

import "hightech/internal/models"

// UserRepository defines the interface for admin account data access.
type UserRepository interface {
	Create(user *models.AdminUser) error
	GetByEmail(email string) (*models.AdminUser, error)
	GetByID(id string) (*models.AdminUser, error)
}
