package app

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	commitmentDomain "github.com/jurzon/backy/internal/commitments/domain"
	commitmentPersistence "github.com/jurzon/backy/internal/commitments/infrastructure/persistence"
	paymentDomain "github.com/jurzon/backy/internal/payments/domain"
	paymentPersistence "github.com/jurzon/backy/internal/payments/infrastructure/persistence"
	reminderDomain "github.com/jurzon/backy/internal/reminders/domain"
	reminderPersistence "github.com/jurzon/backy/internal/reminders/infrastructure/persistence"
	sharedApplication "github.com/jurzon/backy/internal/shared/application"
	"github.com/jurzon/backy/internal/shared/infrastructure/database"
	"github.com/jurzon/backy/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/jurzon/backy/internal/shared/infrastructure/persistence"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// byDriver returns the Postgres or SQLite flavour of a store, whichever
// matches the connection.
func byDriver[T any](f *RepositoryFactory, postgres func(*pgxpool.Pool) T, sqlite func(*sql.DB) T) (T, error) {
	var zero T
	switch f.driver {
	case database.DriverPostgres:
		pg, ok := f.conn.(interface{ Pool() *pgxpool.Pool })
		if !ok {
			return zero, fmt.Errorf("postgres connection does not expose Pool()")
		}
		return postgres(pg.Pool()), nil
	case database.DriverSQLite:
		lite, ok := f.conn.(interface{ DB() *sql.DB })
		if !ok {
			return zero, fmt.Errorf("sqlite connection does not expose DB()")
		}
		return sqlite(lite.DB()), nil
	default:
		return zero, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// CommitmentRepository creates a commitment repository for the configured driver.
func (f *RepositoryFactory) CommitmentRepository() (commitmentDomain.Repository, error) {
	return byDriver(f,
		func(p *pgxpool.Pool) commitmentDomain.Repository { return commitmentPersistence.NewPostgresCommitmentRepository(p) },
		func(db *sql.DB) commitmentDomain.Repository { return commitmentPersistence.NewSQLiteCommitmentRepository(db) },
	)
}

// ReminderRepository creates a reminder event repository.
func (f *RepositoryFactory) ReminderRepository() (reminderDomain.ReminderRepository, error) {
	return byDriver(f,
		func(p *pgxpool.Pool) reminderDomain.ReminderRepository { return reminderPersistence.NewPostgresReminderRepository(p) },
		func(db *sql.DB) reminderDomain.ReminderRepository { return reminderPersistence.NewSQLiteReminderRepository(db) },
	)
}

// QuietHoursRepository creates the uncached quiet hours store. The container
// layers the Redis cache on top.
func (f *RepositoryFactory) QuietHoursRepository() (reminderDomain.QuietHoursRepository, error) {
	return byDriver(f,
		func(p *pgxpool.Pool) reminderDomain.QuietHoursRepository { return reminderPersistence.NewPostgresQuietHoursRepository(p) },
		func(db *sql.DB) reminderDomain.QuietHoursRepository { return reminderPersistence.NewSQLiteQuietHoursRepository(db) },
	)
}

func (f *RepositoryFactory) PaymentIntentRepository() (paymentDomain.Repository, error) {
	return byDriver(f,
		func(p *pgxpool.Pool) paymentDomain.Repository { return paymentPersistence.NewPostgresPaymentIntentRepository(p) },
		func(db *sql.DB) paymentDomain.Repository { return paymentPersistence.NewSQLitePaymentIntentRepository(db) },
	)
}

func (f *RepositoryFactory) OutboxRepository() (outbox.Repository, error) {
	return byDriver(f,
		func(p *pgxpool.Pool) outbox.Repository { return outbox.NewPostgresRepository(p) },
		func(db *sql.DB) outbox.Repository { return outbox.NewSQLiteRepository(db) },
	)
}

// UnitOfWork creates the transaction boundary shared by every repository
// above.
func (f *RepositoryFactory) UnitOfWork() (sharedApplication.UnitOfWork, error) {
	return byDriver(f,
		func(p *pgxpool.Pool) sharedApplication.UnitOfWork { return sharedPersistence.NewPostgresUnitOfWork(p) },
		func(db *sql.DB) sharedApplication.UnitOfWork { return sharedPersistence.NewSQLiteUnitOfWork(db) },
	)
}

// Driver returns the database driver type.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}
