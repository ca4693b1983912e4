// Package store persists summarizer output in SQLite.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // Required by the library implementation.

	"github.com/teilomillet/jobsum/utils"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("record not found")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Record is one summarized job description.
type Record struct {
	ID              uuid.UUID
	Source          string
	DescriptionHash string
	RawOutput       string
	JobType         string
	Skills          []string
	Summary         string
	Model           string
	CreatedAt       time.Time
}

// HashDescription is the key a description is deduplicated on.
func HashDescription(description string) string {
	sum := sha256.Sum256([]byte(description))
	return hex.EncodeToString(sum[:])
}

type Store struct {
	db     *sql.DB
	logger utils.Logger
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(ctx context.Context, path string, logger utils.Logger) (*Store, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}

	if err := migrateUp(db, path, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func migrateUp(db *sql.DB, path string, logger utils.Logger) error {
	dbInstance, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create DB instance: %w", err)
	}
	srcInstance, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create source instance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcInstance, "sqlite3", dbInstance)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	migrateErr := m.Up()

	fields := []any{"path", path}
	version, dirty, versionErr := m.Version()
	if versionErr == nil {
		fields = append(fields, "version", version, "dirty", dirty)
	} else if !errors.Is(versionErr, migrate.ErrNilVersion) {
		logger.Warn("Failed to fetch migration version", "error", versionErr, "path", path)
	}

	if migrateErr != nil {
		if !errors.Is(migrateErr, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", migrateErr)
		}
		logger.Debug("No migrations to apply", fields...)
		return nil
	}
	logger.Info("DB is migrated", fields...)
	return nil
}

// Save inserts rec unless a record for the same description hash and model
// exists already. It reports whether a row was written. Either way rec.ID and
// rec.CreatedAt hold the stored row's values afterwards.
func (s *Store) Save(ctx context.Context, rec *Record) (bool, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if rec.JobType == "" {
		rec.JobType = "unknown"
	}
	skills, err := encodeSkills(rec.Skills)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO job_summaries
		(id, source, description_hash, raw_output, job_type, skills, summary, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), rec.Source, rec.DescriptionHash, rec.RawOutput, rec.JobType,
		skills, rec.Summary, rec.Model, createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert job summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		rec.ID, rec.CreatedAt = id, createdAt
		return true, nil
	}

	var storedID string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM job_summaries WHERE description_hash = ? AND model = ?`,
		rec.DescriptionHash, rec.Model,
	).Scan(&storedID, &rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("look up stored job summary: %w", err)
	}
	if rec.ID, err = uuid.Parse(storedID); err != nil {
		return false, fmt.Errorf("parse record id %q: %w", storedID, err)
	}
	s.logger.Debug("Job summary already stored", "id", rec.ID, "hash", rec.DescriptionHash, "model", rec.Model)
	return false, nil
}

// Skills are stored as a JSON array so entries may contain commas.
func encodeSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	data, err := json.Marshal(skills)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}
	return string(data), nil
}

const selectColumns = `id, source, description_hash, raw_output, job_type, skills, summary, model, created_at`

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM job_summaries WHERE id = ?`, id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListByJobType returns records of jobType, newest first. limit <= 0 means
// no limit.
func (s *Store) ListByJobType(ctx context.Context, jobType string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM job_summaries WHERE job_type = ? ORDER BY created_at DESC, id LIMIT ?`,
		jobType, limit)
	if err != nil {
		return nil, fmt.Errorf("query job summaries: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job summaries: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec    Record
		id     string
		skills string
	)
	err := row.Scan(&id, &rec.Source, &rec.DescriptionHash, &rec.RawOutput, &rec.JobType,
		&skills, &rec.Summary, &rec.Model, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job summary: %w", err)
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse record id %q: %w", id, err)
	}
	rec.Skills = []string{}
	if skills != "" {
		if err := json.Unmarshal([]byte(skills), &rec.Skills); err != nil {
			return nil, fmt.Errorf("decode skills of %s: %w", id, err)
		}
	}
	return &rec, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
