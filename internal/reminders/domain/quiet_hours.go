package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/commitments/domain/recurrence"
)

const (
	DefaultQuietStart = 22
	DefaultQuietEnd   = 7
)

// QuietHours is the local window during which a user's reminders are
// deferred. StartHour is inclusive and EndHour exclusive. A window with
// StartHour > EndHour wraps past midnight; equal hours disable it.
type QuietHours struct {
	userID    uuid.UUID
	startHour int
	endHour   int
	timezone  string
	loc       *time.Location
	updatedAt time.Time
}

// NewQuietHours validates the hours and resolves the zone.
func NewQuietHours(userID uuid.UUID, startHour, endHour int, timezone string, now time.Time) (*QuietHours, error) {
	if !validHour(startHour) || !validHour(endHour) {
		return nil, ErrInvalidQuietHour
	}
	loc, err := recurrence.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &QuietHours{
		userID:    userID,
		startHour: startHour,
		endHour:   endHour,
		timezone:  loc.String(),
		loc:       loc,
		updatedAt: now.UTC(),
	}, nil
}

// DefaultQuietHours is the 22:00 to 07:00 UTC window used for users
// without their own setting.
func DefaultQuietHours(userID uuid.UUID) *QuietHours {
	return &QuietHours{
		userID:    userID,
		startHour: DefaultQuietStart,
		endHour:   DefaultQuietEnd,
		timezone:  time.UTC.String(),
		loc:       time.UTC,
	}
}

// RehydrateQuietHours recreates a stored window. An unknown zone falls
// back to UTC.
func RehydrateQuietHours(userID uuid.UUID, startHour, endHour int, timezone string, updatedAt time.Time) *QuietHours {
	loc, err := recurrence.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &QuietHours{
		userID:    userID,
		startHour: startHour,
		endHour:   endHour,
		timezone:  loc.String(),
		loc:       loc,
		updatedAt: updatedAt.UTC(),
	}
}

func (q *QuietHours) UserID() uuid.UUID        { return q.userID }
func (q *QuietHours) StartHour() int           { return q.startHour }
func (q *QuietHours) EndHour() int             { return q.endHour }
func (q *QuietHours) Timezone() string         { return q.timezone }
func (q *QuietHours) Location() *time.Location { return q.loc }
func (q *QuietHours) UpdatedAt() time.Time     { return q.updatedAt }
func (q *QuietHours) IsDisabled() bool         { return q.startHour == q.endHour }
func (q *QuietHours) IsOvernight() bool        { return q.startHour > q.endHour }

// Contains reports whether t falls inside the window, read on the wall
// clock of the window's zone.
func (q *QuietHours) Contains(t time.Time) bool {
	if q.IsDisabled() {
		return false
	}
	h := t.In(q.loc).Hour()
	if q.startHour < q.endHour {
		return h >= q.startHour && h < q.endHour
	}
	return h >= q.startHour || h < q.endHour
}

// NextWindowEnd returns the first local EndHour:00 strictly after t.
func (q *QuietHours) NextWindowEnd(t time.Time) time.Time {
	local := t.In(q.loc)
	day := recurrence.DateOf(local)
	at := recurrence.TimeOfDay{Hour: q.endHour}
	for i := 0; i < 3; i++ {
		candidate := recurrence.ResolveLocal(day, at, q.loc)
		if candidate.After(t) {
			return candidate
		}
		day = day.AddDays(1)
	}
	return t.Add(24 * time.Hour).UTC()
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}
