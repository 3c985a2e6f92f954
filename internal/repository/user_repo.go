package repository

import (
	"errors"

	"github.com/ourclass/backend/internal/domain"
	"gorm.io/gorm"
)

// UserRepository resolves participant IDs to directory rows
type UserRepository interface {
	FindByUserID(userID string) (*domain.User, error)
	FindByUserIDs(userIDs []string) ([]domain.User, error)
	Exists(userID string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByUserID returns a user by their public ID, nil if absent
func (r *userRepository) FindByUserID(userID string) (*domain.User, error) {
	var user domain.User
	err := r.db.Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByUserIDs returns the users that exist among the given IDs
func (r *userRepository) FindByUserIDs(userIDs []string) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []domain.User
	err := r.db.Where("user_id IN ?", userIDs).Find(&users).Error
	return users, err
}

// Exists reports whether a user ID is registered
func (r *userRepository) Exists(userID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.User{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}
