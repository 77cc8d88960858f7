package db

import (
	"context"
	"database/sql"
	"errors"
)

// DraftStore journals the last successfully persisted title/content for a
// branch page. It backs the autosave unchanged-value guard across gateway
// restarts; the backend remains the source of truth for page content.
type DraftStore struct {
	db     *DB
	userID string
	repo   string
	branch string
}

func NewDraftStore(db *DB, userID, repoRef, branchName string) *DraftStore {
	return &DraftStore{db: db, userID: userID, repo: repoRef, branch: branchName}
}

// Store upserts the persisted values for this page.
func (s *DraftStore) Store(ctx context.Context, title, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_drafts (user_id, repo, branch, title, content, saved_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, repo, branch)
		DO UPDATE SET title = $4, content = $5, saved_at = NOW()
	`, s.userID, s.repo, s.branch, title, content)
	return err
}

// Load returns the journaled values, with ok false when nothing has been
// journaled for this page yet.
func (s *DraftStore) Load(ctx context.Context) (title, content string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT title, content FROM page_drafts
		WHERE user_id = $1 AND repo = $2 AND branch = $3
	`, s.userID, s.repo, s.branch)

	if err := row.Scan(&title, &content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, err
	}
	return title, content, true, nil
}
