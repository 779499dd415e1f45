package handlers

import (
	"time"

	"flarelog/internal/models"
)

// UserDTO is the API shape of a user; the password hash never leaves the
// store layer.
type UserDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Score     int    `json:"score"`
	RankID    string `json:"rank_id"`
	CreatedAt string `json:"created_at"`
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Score:     u.Score,
		RankID:    u.RankID,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

type CheckinDTO struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func ToCheckinDTO(c models.Checkin) CheckinDTO {
	return CheckinDTO{
		ID:        c.ID,
		Status:    c.Status.String(),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
