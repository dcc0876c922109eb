package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/foxseedlab/multihost/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

type sessionRow struct {
	ID              string `gorm:"primaryKey"`
	StreamID        string `gorm:"not null"`
	PrimaryHostID   string `gorm:"not null"`
	StartedAt       time.Time
	EndedAt         *time.Time
	Status          string `gorm:"not null;default:running;index"`
	DurationSeconds int64
	HostCount       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type sessionHostRow struct {
	SessionID string `gorm:"primaryKey"`
	HostID    string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Role      string `gorm:"not null"`
	JoinedAt  time.Time
	LeftAt    *time.Time
}

func (sessionHostRow) TableName() string { return "session_hosts" }

type invitationRow struct {
	ID             string `gorm:"primaryKey"`
	SessionID      string `gorm:"not null;index:idx_invitations_session"`
	InviterHostID  string `gorm:"not null"`
	Email          string `gorm:"not null"`
	Name           string `gorm:"not null"`
	Role           string `gorm:"not null"`
	Status         string `gorm:"not null"`
	AcceptedHostID string
	CreatedAt      time.Time `gorm:"index:idx_invitations_session"`
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

func (invitationRow) TableName() string { return "invitations" }

// gormLogger routes GORM output through slog.
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		slog.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		slog.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		slog.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		slog.ErrorContext(ctx, "gorm query error", "error", err, "duration", elapsed, "sql", sql, "rows", rows)
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		slog.WarnContext(ctx, "slow query", "duration", elapsed, "sql", sql, "rows", rows)
	case l.level >= logger.Info:
		sql, rows := fc()
		slog.DebugContext(ctx, "gorm query", "duration", elapsed, "sql", sql, "rows", rows)
	}
}

type SQLiteRepository struct {
	db *gorm.DB
}

var _ repository.Repository = (*SQLiteRepository)(nil)

// OpenSQLite opens the database file at path, creating its directory, and
// migrates the schema. Query tracing is enabled when debug is true.
func OpenSQLite(path string, debug bool) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  (&gormLogger{}).LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			closeDB(db)
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if err := db.AutoMigrate(&sessionRow{}, &sessionHostRow{}, &invitationRow{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Warn("failed to close database after setup error", "error", err)
	}
}

// Shutdown closes the underlying database handle.
func (r *SQLiteRepository) Shutdown() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := sessionRow{
		ID:            input.SessionID,
		StreamID:      input.StreamID,
		PrimaryHostID: input.PrimaryHostID,
		StartedAt:     input.StartedAt,
		Status:        string(repository.SessionStatusRunning),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return sessionFromRow(row), nil
}

func (r *SQLiteRepository) CompleteSession(ctx context.Context, input repository.CompleteSessionInput) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		if err := tx.First(&row, "id = ?", input.SessionID).Error; err != nil {
			return err
		}
		duration := int64(input.EndedAt.Sub(row.StartedAt) / time.Second)
		if duration < 0 {
			duration = 0
		}
		err := tx.Model(&row).Updates(map[string]any{
			"status":           string(repository.SessionStatusCompleted),
			"ended_at":         input.EndedAt,
			"duration_seconds": duration,
			"host_count":       input.HostCount,
		}).Error
		if err != nil {
			return err
		}
		return tx.Model(&sessionHostRow{}).
			Where("session_id = ? AND left_at IS NULL", input.SessionID).
			Update("left_at", input.EndedAt).Error
	})
}

func (r *SQLiteRepository) GetSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	var row sessionRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sessionFromRow(row), nil
}

func (r *SQLiteRepository) RecordHostJoined(ctx context.Context, input repository.HostJoinedInput) error {
	row := sessionHostRow{
		SessionID: input.SessionID,
		HostID:    input.HostID,
		Name:      input.Name,
		Role:      input.Role,
		JoinedAt:  input.JoinedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "host_id"}},
		DoUpdates: clause.Assignments(map[string]any{"name": input.Name, "role": input.Role, "left_at": nil}),
	}).Create(&row).Error
}

func (r *SQLiteRepository) RecordHostLeft(ctx context.Context, input repository.HostLeftInput) error {
	return r.db.WithContext(ctx).Model(&sessionHostRow{}).
		Where("session_id = ? AND host_id = ? AND left_at IS NULL", input.SessionID, input.HostID).
		Update("left_at", input.LeftAt).Error
}

func (r *SQLiteRepository) ListSessionHosts(ctx context.Context, sessionID string) ([]repository.SessionHost, error) {
	var rows []sessionHostRow
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC, host_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]repository.SessionHost, 0, len(rows))
	for _, row := range rows {
		list = append(list, repository.SessionHost{
			SessionID: row.SessionID,
			HostID:    row.HostID,
			Name:      row.Name,
			Role:      row.Role,
			JoinedAt:  row.JoinedAt,
			LeftAt:    row.LeftAt,
		})
	}
	return list, nil
}

func (r *SQLiteRepository) SaveInvitation(ctx context.Context, input repository.SaveInvitationInput) error {
	row := invitationRow{
		ID:             input.ID,
		SessionID:      input.SessionID,
		InviterHostID:  input.InviterHostID,
		Email:          input.Email,
		Name:           input.Name,
		Role:           input.Role,
		Status:         input.Status,
		AcceptedHostID: input.AcceptedHostID,
		CreatedAt:      input.CreatedAt,
		ExpiresAt:      input.ExpiresAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "accepted_host_id", "updated_at"}),
	}).Create(&row).Error
}

func (r *SQLiteRepository) ListInvitations(ctx context.Context, sessionID string) ([]repository.Invitation, error) {
	var rows []invitationRow
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]repository.Invitation, 0, len(rows))
	for _, row := range rows {
		list = append(list, repository.Invitation{
			ID:             row.ID,
			SessionID:      row.SessionID,
			InviterHostID:  row.InviterHostID,
			Email:          row.Email,
			Name:           row.Name,
			Role:           row.Role,
			Status:         row.Status,
			AcceptedHostID: row.AcceptedHostID,
			CreatedAt:      row.CreatedAt,
			ExpiresAt:      row.ExpiresAt,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return list, nil
}

func sessionFromRow(row sessionRow) *repository.Session {
	return &repository.Session{
		ID:              row.ID,
		StreamID:        row.StreamID,
		PrimaryHostID:   row.PrimaryHostID,
		StartedAt:       row.StartedAt,
		EndedAt:         row.EndedAt,
		Status:          repository.SessionStatus(row.Status),
		DurationSeconds: row.DurationSeconds,
		HostCount:       row.HostCount,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
