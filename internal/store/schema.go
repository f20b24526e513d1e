package store

import (
	"context"
	"fmt"
)

// initSchema creates missing tables and adds any columns a newer version of
// the bot expects. Upgrades are additive only, so existing history survives
// and no external migration tool is needed.
func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS posted (
            id TEXT PRIMARY KEY,
            image_fingerprint TEXT,
            posted_at_utc TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS metadata (
            key TEXT PRIMARY KEY,
            value TEXT
        )`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	// Databases created by earlier versions predate these columns.
	required := []struct {
		table  string
		column string
		kind   string
	}{
		{"posted", "image_fingerprint", "TEXT"},
		{"posted", "posted_at_utc", "TEXT"},
	}
	for _, col := range required {
		if err := s.ensureColumn(ctx, col.table, col.column, col.kind); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureColumn(ctx context.Context, table, column, kind string) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate table info: %w", err)
	}
	if found {
		return nil
	}

	alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, kind)
	if _, err := s.db.ExecContext(ctx, alter); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}
