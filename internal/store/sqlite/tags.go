package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag. Queries alias tags as t.
const tagColumns = `t.id, t.name, t.parent_id, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM entry_tags et WHERE et.tag_id = t.id)`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		parentID  sql.NullInt64
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Name,
		&parentID,
		&createdAt,
		&updatedAt,
		&t.UsageCount,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		p := parentID.Int64
		t.ParentID = &p
	}

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTag inserts a new tag and sets its ID.
// Returns store.ErrAlreadyExists when the name collides, ignoring case.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (name, name_key, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.Name,
		domain.FoldKey(t.Name),
		nullInt64Ptr(t.ParentID),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	t.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("tag id: %w", err)
	}
	return nil
}

// GetTag retrieves a tag by its ID.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, id int64) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.id = ?`, id)

	t, err := scanTag(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// GetTagByName retrieves a tag by name, ignoring case.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.name_key = ?`, domain.FoldKey(name))

	t, err := scanTag(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListTags returns all tags with usage counts, ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags t ORDER BY t.name_key ASC, t.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

// UpdateTag saves a tag's name and parent.
// Returns store.ErrNotFound if the tag does not exist and
// store.ErrAlreadyExists if the new name collides.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags SET
			name = ?,
			name_key = ?,
			parent_id = ?,
			updated_at = ?
		WHERE id = ?`,
		t.Name,
		domain.FoldKey(t.Name),
		nullInt64Ptr(t.ParentID),
		formatTime(t.UpdatedAt),
		t.ID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteTag removes a tag's entry associations, detaches its children and
// deletes the tag, all in one transaction. Descendant tags are never deleted.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entry_tags WHERE tag_id = ?`, id); err != nil {
		return fmt.Errorf("delete tag associations: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tags SET parent_id = NULL WHERE parent_id = ?`, id); err != nil {
		return fmt.Errorf("detach children: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

// ExistingTagIDs returns the subset of ids that name a stored tag, ascending.
func (s *Store) ExistingTagIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return []int64{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM tags WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}
