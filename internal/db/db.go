package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type DB struct {
	*sql.DB
}

func Open(databaseURL string) (*DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("GITION_DATABASE_URL is required")
	}

	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{sqlDB}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		// Visits: the most recent navigation targets per user/repo, so a
		// returning session can reopen where the user left off.
		`CREATE TABLE IF NOT EXISTS visits (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			repo TEXT NOT NULL,
			branch TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			visited_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, repo)
		)`,

		// Page drafts: journal of the last successfully persisted
		// title/content per branch page. The autosave unchanged-value
		// guard reads this after a gateway restart so it does not issue
		// a redundant save for text the backend already has.
		`CREATE TABLE IF NOT EXISTS page_drafts (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			repo TEXT NOT NULL,
			branch TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			saved_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, repo, branch)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_visits_user ON visits(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_page_drafts_repo ON page_drafts(user_id, repo)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", m[:50], err)
		}
	}

	return nil
}
