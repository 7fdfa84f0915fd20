package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Service is the raw-SQL data access layer. Methods that touch more than one
// table run in a single transaction.
type Service interface {
	Health() map[string]string
	Close() error
	DB() *sql.DB

	// accounts
	CreateAccount(ctx context.Context, account *NewAccount) (*User, error)
	UpsertOAuthUser(ctx context.Context, user *User) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// projects
	CreateProject(ctx context.Context, project *Project, actorID uuid.UUID) (*ProjectChange, error)
	GetProject(ctx context.Context, id uuid.UUID, viewer Viewer) (*Project, error)
	ListProjects(ctx context.Context, viewer Viewer) ([]*Project, error)
	UpdateProjectStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*ProjectChange, error)

	// materials
	CreateMaterial(ctx context.Context, material *Material) (*ProjectActivity, error)
	GetMaterial(ctx context.Context, projectID, materialID uuid.UUID) (*Material, error)
	ListMaterials(ctx context.Context, projectID uuid.UUID) ([]*Material, error)

	// tickets
	CreateTicket(ctx context.Context, ticket *Ticket) (*ProjectActivity, error)
	GetTicket(ctx context.Context, id uuid.UUID, viewer Viewer) (*Ticket, error)
	ListTickets(ctx context.Context, viewer Viewer, projectID *uuid.UUID) ([]*Ticket, error)
	UpdateTicketStatus(ctx context.Context, id uuid.UUID, status string) (*TicketChange, error)
	CreateTicketMessage(ctx context.Context, message *TicketMessage, projectID uuid.UUID) (*ProjectActivity, error)
	ListTicketMessages(ctx context.Context, ticketID uuid.UUID) ([]*TicketMessage, error)

	// notifications
	GetUserNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*Notification, error)
	MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkNotificationsAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)

	// activities
	ListProjectActivities(ctx context.Context, projectID uuid.UUID, limit int) ([]*ProjectActivity, error)
}

// Viewer scopes reads. Admins see every row; clients only rows tied to
// projects they own.
type Viewer struct {
	UserID uuid.UUID
	Admin  bool
}

type service struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens a pgx-backed pool and verifies the connection.
func New(dsn string) (Service, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_STRING environment variable not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &service{db: db}, nil
}

// NewWithDB wraps an existing handle. Tests use it with sqlmock.
func NewWithDB(db *sql.DB) Service {
	return &service{db: db}
}

func (s *service) DB() *sql.DB {
	return s.db
}

// Health checks the health of the database connection by pinging the database.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

func (s *service) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction and commits when it returns nil.
func (s *service) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
