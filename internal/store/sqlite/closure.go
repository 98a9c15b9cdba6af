package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/hierarchy"
	"github.com/listenupapp/diary-server/internal/store"
)

// The closure holds (descendant, ancestor) for every reflexive or transitive
// ancestor of each tag. It is a cache of the tags table and is optional:
// when it is missing, callers expand tags live with hierarchy.Resolver.
const closureDDL = `
CREATE TABLE IF NOT EXISTS tag_closure (
    descendant_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    ancestor_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (descendant_id, ancestor_id)
);
CREATE INDEX IF NOT EXISTS idx_tag_closure_ancestor ON tag_closure(ancestor_id);
`

var errClosureDisabled = store.ErrNotFound.WithMessage("tag closure is not enabled")

// ClosureExists reports whether the tag_closure table is present.
func (s *Store) ClosureExists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'tag_closure'`).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// EnableClosure creates the closure table if needed and fills it.
// Returns the number of rows written.
func (s *Store) EnableClosure(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, closureDDL); err != nil {
		return 0, fmt.Errorf("create tag_closure: %w", err)
	}
	return s.RebuildClosure(ctx)
}

// DropClosure removes the closure table, forcing live expansion.
func (s *Store) DropClosure(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS tag_closure`)
	return err
}

// RebuildClosure recomputes the whole closure from the current tags.
// Cycles are broken the same way hierarchy.Resolver breaks them, so the
// closure and live expansion always agree on a given snapshot.
// Returns the number of rows written.
func (s *Store) RebuildClosure(ctx context.Context) (int, error) {
	exists, err := s.ClosureExists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errClosureDisabled
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	tags, err := loadTagGraph(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("load tags: %w", err)
	}
	r := hierarchy.New(tags)

	if _, err := tx.ExecContext(ctx, `DELETE FROM tag_closure`); err != nil {
		return 0, fmt.Errorf("clear tag_closure: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tag_closure (descendant_id, ancestor_id) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for _, t := range tags {
		for _, a := range r.Ancestors(t.ID) {
			if _, err := stmt.ExecContext(ctx, t.ID, a); err != nil {
				return 0, fmt.Errorf("insert closure (%d, %d): %w", t.ID, a, err)
			}
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Debug("tag closure rebuilt", "tags", len(tags), "rows", rows)
	return rows, nil
}

// CountClosureRows returns the number of closure rows.
func (s *Store) CountClosureRows(ctx context.Context) (int, error) {
	exists, err := s.ClosureExists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errClosureDisabled
	}

	var n int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tag_closure`).Scan(&n)
	return n, err
}

// ClosureDescendantsMatching returns every descendant of every tag whose
// folded name contains key, ascending.
func (s *Store) ClosureDescendantsMatching(ctx context.Context, key string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT c.descendant_id
		FROM tag_closure c
		JOIN tags a ON a.id = c.ancestor_id
		WHERE instr(a.name_key, ?) > 0
		ORDER BY c.descendant_id`, key)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// ClosureDescendantsOf returns tagID's descendants, itself included, ascending.
func (s *Store) ClosureDescendantsOf(ctx context.Context, tagID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT descendant_id
		FROM tag_closure
		WHERE ancestor_id = ?
		ORDER BY descendant_id`, tagID)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// loadTagGraph reads only what the resolver needs.
func loadTagGraph(ctx context.Context, tx *sql.Tx) ([]domain.Tag, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, parent_id FROM tags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var (
			t        domain.Tag
			parentID sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Name, &parentID); err != nil {
			return nil, err
		}
		if parentID.Valid {
			p := parentID.Int64
			t.ParentID = &p
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
