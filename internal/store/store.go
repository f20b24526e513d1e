package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
)

// nextAllowedPostKey is the reserved metadata key holding the rate-limit
// cooldown expiry as an ISO-8601 UTC timestamp.
const nextAllowedPostKey = "next_allowed_post_utc"

// Store manages posted-item history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// PostedRecord is one previously republished item.
type PostedRecord struct {
	ID               string
	ImageFingerprint string
	PostedAt         time.Time
}

// Open initializes or connects to the state database at its fixed location
// under the data directory and brings the schema up to date. A failure here
// is fatal for the run; callers must not proceed to any network activity.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	return s.path
}

// HasPosted reports whether a record with this id exists.
func (s *Store) HasPosted(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posted WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check posted id: %w", err)
	}
	return count > 0, nil
}

// HasPostedImage reports whether any record carries this image fingerprint,
// regardless of id. An empty fingerprint never matches.
func (s *Store) HasPostedImage(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posted WHERE image_fingerprint = ?`, fingerprint).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check posted fingerprint: %w", err)
	}
	return count > 0, nil
}

// RecordPosted upserts the record for id: inserted when absent, otherwise the
// fingerprint and timestamp are overwritten. Calling it twice with the same
// arguments leaves exactly one stable record.
func (s *Store) RecordPosted(ctx context.Context, id, fingerprint string) error {
	if id == "" {
		return errors.New("record posted: id required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posted (id, image_fingerprint, posted_at_utc)
         VALUES (?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
           image_fingerprint = excluded.image_fingerprint,
           posted_at_utc = excluded.posted_at_utc`,
		id, fingerprint, now,
	)
	if err != nil {
		return fmt.Errorf("record posted: %w", err)
	}
	return nil
}

// ListPosted returns the most recent records, newest first. A non-positive
// limit returns everything.
func (s *Store) ListPosted(ctx context.Context, limit int) ([]PostedRecord, error) {
	query := `SELECT id, image_fingerprint, posted_at_utc FROM posted ORDER BY posted_at_utc DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posted: %w", err)
	}
	defer rows.Close()

	var records []PostedRecord
	for rows.Next() {
		var (
			record      PostedRecord
			fingerprint sql.NullString
			postedRaw   sql.NullString
		)
		if err := rows.Scan(&record.ID, &fingerprint, &postedRaw); err != nil {
			return nil, fmt.Errorf("scan posted record: %w", err)
		}
		record.ImageFingerprint = fingerprint.String
		if postedRaw.Valid {
			if ts, err := time.Parse(time.RFC3339, postedRaw.String); err == nil {
				record.PostedAt = ts
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Count returns the total number of posted records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posted`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count posted: %w", err)
	}
	return count, nil
}

// GetCooldownUntil returns the persisted rate-limit expiry, or nil when no
// restriction is recorded. An unparseable stored value is treated as absent.
func (s *Store) GetCooldownUntil(ctx context.Context) (*time.Time, error) {
	value, err := s.GetMetadata(ctx, nextAllowedPostKey)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, nil
	}
	ts = ts.UTC()
	return &ts, nil
}

// SetCooldownUntil persists the rate-limit expiry. A nil value clears it.
func (s *Store) SetCooldownUntil(ctx context.Context, until *time.Time) error {
	if until == nil {
		return s.SetMetadata(ctx, nextAllowedPostKey, "")
	}
	return s.SetMetadata(ctx, nextAllowedPostKey, until.UTC().Format(time.RFC3339))
}

// GetMetadata returns the value stored under key, or empty when absent.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value.String, nil
}

// SetMetadata upserts a metadata key. An empty value stores NULL, which reads
// back as absent.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	var stored any
	if value != "" {
		stored = value
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, stored,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}
