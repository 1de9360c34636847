package users

import (
	"time"

	"github.com/bookableu/core/internal/models"
)

type UpdateUserDTO struct {
	Name           *string                 `json:"name"`
	ProfilePicture *string                 `json:"profile_picture"`
	Preferences    *models.UserPreferences `json:"preferences"`
}

type userResponse struct {
	ID             string                 `json:"id"`
	Email          string                 `json:"email"`
	Name           string                 `json:"name"`
	ProfilePicture string                 `json:"profile_picture,omitempty"`
	Preferences    models.UserPreferences `json:"preferences"`
	BooksFinished  int                    `json:"books_finished"`
	Created        time.Time              `json:"created"`
}

func toResponse(u *models.UserModel) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
		Preferences:    u.Preferences,
		BooksFinished:  u.BooksFinished,
		Created:        u.CreatedAt,
	}
}
