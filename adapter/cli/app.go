package cli

import (
	"context"
	"errors"

	"github.com/google/uuid"
	internalApp "github.com/jurzon/backy/internal/app"
	commitmentCommands "github.com/jurzon/backy/internal/commitments/application/commands"
	commitmentQueries "github.com/jurzon/backy/internal/commitments/application/queries"
	paymentQueries "github.com/jurzon/backy/internal/payments/application/queries"
	reminderCommands "github.com/jurzon/backy/internal/reminders/application/commands"
	reminderQueries "github.com/jurzon/backy/internal/reminders/application/queries"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	sharedDomain "github.com/jurzon/backy/internal/shared/domain"
	"github.com/jurzon/backy/internal/shared/infrastructure/jobs"
)

// ErrNotInitialized is returned by commands run without a database.
var ErrNotInitialized = errors.New("application not initialized - database connection required")

// App holds the CLI application dependencies.
type App struct {
	// Commitment Command Handlers
	CreateCommitmentHandler   *commitmentCommands.CreateCommitmentHandler
	CheckInHandler            *commitmentCommands.CheckInHandler
	CompleteCommitmentHandler *commitmentCommands.CompleteCommitmentHandler
	FailCommitmentHandler     *commitmentCommands.FailCommitmentHandler
	CancelCommitmentHandler   *commitmentCommands.CancelCommitmentHandler
	DeleteCommitmentHandler   *commitmentCommands.DeleteCommitmentHandler

	// Commitment Query Handlers
	GetCommitmentHandler   *commitmentQueries.GetCommitmentHandler
	ListCommitmentsHandler *commitmentQueries.ListCommitmentsHandler
	PreviewScheduleHandler *commitmentQueries.PreviewScheduleHandler

	// Quiet Hours
	SetQuietHoursHandler   *reminderCommands.SetQuietHoursHandler
	ClearQuietHoursHandler *reminderCommands.ClearQuietHoursHandler
	GetQuietHoursHandler   *reminderQueries.GetQuietHoursHandler

	// Payments
	ListPaymentIntentsHandler *paymentQueries.ListPaymentIntentsHandler

	// Calendar export
	ExportCalendarHandler *commitmentQueries.ExportCalendarHandler

	// Jobs, run once from the command line
	JobRunner *jobs.Runner
	Jobs      map[string]jobs.Job

	Clock sharedDomain.Clock
	Ping  func(ctx context.Context) error

	// Current user (configured per environment)
	CurrentUserID uuid.UUID
}

// NewApp creates a CLI application from a wired container.
func NewApp(c *internalApp.Container) *App {
	a := &App{
		CreateCommitmentHandler:   c.CreateCommitmentHandler,
		CheckInHandler:            c.CheckInHandler,
		CompleteCommitmentHandler: c.CompleteCommitmentHandler,
		FailCommitmentHandler:     c.FailCommitmentHandler,
		CancelCommitmentHandler:   c.CancelCommitmentHandler,
		DeleteCommitmentHandler:   c.DeleteCommitmentHandler,
		GetCommitmentHandler:      c.GetCommitmentHandler,
		ListCommitmentsHandler:    c.ListCommitmentsHandler,
		PreviewScheduleHandler:    c.PreviewScheduleHandler,
		SetQuietHoursHandler:      c.SetQuietHoursHandler,
		ClearQuietHoursHandler:    c.ClearQuietHoursHandler,
		GetQuietHoursHandler:      c.GetQuietHoursHandler,
		ListPaymentIntentsHandler: c.ListPaymentIntentsHandler,
		ExportCalendarHandler:     c.ExportCalendarHandler,
		JobRunner:                 c.JobRunner,
		Jobs:                      make(map[string]jobs.Job),
		Clock:                     c.Clock,
		Ping:                      c.DBConn.Ping,
		CurrentUserID:             c.UserID,
	}
	for _, sj := range c.ScheduledJobs() {
		a.Jobs[sj.Job.Name()] = sj.Job
	}
	return a
}

// RunJob runs the named job once through the job lock.
func (a *App) RunJob(ctx context.Context, name string) (*sharedApplication.BatchReport, error) {
	job, ok := a.Jobs[name]
	if !ok {
		return nil, errors.New("unknown job " + name)
	}
	return a.JobRunner.Run(ctx, job)
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id uuid.UUID) {
	a.CurrentUserID = id
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the application or ErrNotInitialized.
func RequireApp() (*App, error) {
	if app == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}
