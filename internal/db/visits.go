package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gition/gition/internal/nav"
)

// Visit is the last recorded navigation target for a user/repo pair.
type Visit struct {
	UserID string
	Repo   string
	Branch string
	Path   string
}

// VisitStore persists navigation targets, one row per (user, repo).
type VisitStore struct {
	db     *DB
	userID string
}

func NewVisitStore(db *DB, userID string) *VisitStore {
	return &VisitStore{db: db, userID: userID}
}

// RecordVisit upserts the latest target for the repository.
func (s *VisitStore) RecordVisit(ctx context.Context, target nav.Target) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (user_id, repo, branch, path, visited_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, repo)
		DO UPDATE SET branch = $3, path = $4, visited_at = NOW()
	`, s.userID, target.RepoRef(), target.Branch, target.Path)
	return err
}

// LastVisit returns the most recent target for a repository, or nil when
// the repository has never been visited.
func (s *VisitStore) LastVisit(ctx context.Context, repoRef string) (*Visit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, repo, branch, path FROM visits
		WHERE user_id = $1 AND repo = $2
	`, s.userID, repoRef)

	var v Visit
	if err := row.Scan(&v.UserID, &v.Repo, &v.Branch, &v.Path); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// RecentVisits returns up to limit targets, most recent first.
func (s *VisitStore) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, repo, branch, path FROM visits
		WHERE user_id = $1
		ORDER BY visited_at DESC
		LIMIT $2
	`, s.userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.UserID, &v.Repo, &v.Branch, &v.Path); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
