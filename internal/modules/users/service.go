package users

import (
	"errors"

	"gorm.io/gorm"

	"github.com/bookableu/core/internal/models"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Update applies partial changes. Preferences replace the stored value as a
// whole; callers send the full preference object.
func (s *Service) Update(id string, dto *UpdateUserDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil || u == nil {
		return u, err
	}

	updates := map[string]any{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.ProfilePicture != nil {
		updates["profile_picture"] = *dto.ProfilePicture
	}
	if dto.Preferences != nil {
		u.Preferences = *dto.Preferences
		updates["preferences"] = u.Preferences
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := s.db.Model(u).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}
