package queries

import (
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain"
)

// CommitmentDTO is the read model for a commitment, with the derived
// progress figures evaluated at the query time.
type CommitmentDTO struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Goal            string
	AmountMinor     int64
	Currency        string
	Stake           string
	Deadline        time.Time
	Timezone        string
	Schedule        string
	Status          string
	ProgressPercent float64
	RiskBadge       string
	CheckInCount    int
	ExpectedCount   int
	NextOccurrence  *time.Time
	GraceExpiresAt  *time.Time
	CreatedAt       time.Time
	CheckIns        []CheckInDTO
}

// CheckInDTO is one recorded check-in.
type CheckInDTO struct {
	ID         uuid.UUID
	OccurredAt time.Time
	Note       string
	PhotoURL   string
}

func toDTO(c *domain.Commitment, now time.Time, withCheckIns bool) CommitmentDTO {
	dto := CommitmentDTO{
		ID:              c.ID(),
		UserID:          c.UserID(),
		Goal:            c.Goal(),
		AmountMinor:     c.Stake().AmountMinor,
		Currency:        c.Stake().Currency,
		Stake:           c.Stake().String(),
		Deadline:        c.Deadline(),
		Timezone:        c.Timezone(),
		Schedule:        c.Schedule().Describe(),
		Status:          c.Status().String(),
		ProgressPercent: c.ProgressPercent(now),
		RiskBadge:       string(c.RiskBadge(now)),
		CheckInCount:    c.CheckInCount(),
		ExpectedCount:   c.ExpectedCheckIns(now),
		GraceExpiresAt:  c.GraceExpiresAt(),
		CreatedAt:       c.CreatedAt(),
	}
	if c.Status() == domain.StatusActive {
		if next, ok := c.NextOccurrence(now); ok {
			dto.NextOccurrence = &next
		}
	}
	if withCheckIns {
		dto.CheckIns = make([]CheckInDTO, 0, c.CheckInCount())
		for _, ci := range c.CheckIns() {
			dto.CheckIns = append(dto.CheckIns, CheckInDTO{
				ID:         ci.ID(),
				OccurredAt: ci.OccurredAt(),
				Note:       ci.Note(),
				PhotoURL:   ci.PhotoURL(),
			})
		}
	}
	return dto
}
