package queries

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
)

// QuietHoursDTO is the window that applies to a user.
type QuietHoursDTO struct {
	UserID    uuid.UUID
	StartHour int
	EndHour   int
	Timezone  string
	IsDefault bool
}

// GetQuietHoursQuery asks for a user's effective quiet hours.
type GetQuietHoursQuery struct {
	UserID uuid.UUID
}

// GetQuietHoursHandler handles the GetQuietHoursQuery.
type GetQuietHoursHandler struct {
	repo domain.QuietHoursRepository
}

// NewGetQuietHoursHandler creates a new GetQuietHoursHandler.
func NewGetQuietHoursHandler(repo domain.QuietHoursRepository) *GetQuietHoursHandler {
	return &GetQuietHoursHandler{repo: repo}
}

// Handle returns the user's own window, or the default one.
func (h *GetQuietHoursHandler) Handle(ctx context.Context, query GetQuietHoursQuery) (*QuietHoursDTO, error) {
	q, err := h.repo.FindByUser(ctx, query.UserID)
	isDefault := false
	if errors.Is(err, domain.ErrQuietHoursNotFound) {
		q, err = domain.DefaultQuietHours(query.UserID), nil
		isDefault = true
	}
	if err != nil {
		return nil, err
	}
	return &QuietHoursDTO{
		UserID:    query.UserID,
		StartHour: q.StartHour(),
		EndHour:   q.EndHour(),
		Timezone:  q.Timezone(),
		IsDefault: isDefault,
	}, nil
}
