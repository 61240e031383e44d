package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/voice-interview/internal/models"
)

type UserRepository interface {
	// CreateIfAbsent inserts the user row unless it already exists. It reports whether a row was created.
	CreateIfAbsent(ctx context.Context, userID string) (bool, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateIfAbsent implements UserRepository.
func (r *userRepository) CreateIfAbsent(ctx context.Context, userID string) (bool, error) {
	user := models.User{ID: userID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&user)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create user: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// Exists implements UserRepository.
func (r *userRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}
