package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/store"
)

// entryColumns is the ordered list of columns selected in entry queries.
// Must match the scan order in scanEntry. Queries alias entries as e.
const entryColumns = `e.id, e.title, e.content, e.created_at, e.updated_at`

// scanEntry scans a sql.Row (or sql.Rows via its Scan method) into a domain.Entry.
// Tags are attached separately by attachTags.
func scanEntry(scanner interface{ Scan(dest ...any) error }) (*domain.Entry, error) {
	var e domain.Entry

	var (
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&e.ID,
		&e.Title,
		&e.Content,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	e.Tags = []string{}
	e.TagIDs = []int64{}
	return &e, nil
}

// CreateEntry inserts a new entry and sets its ID. Tag associations are
// written separately with SetEntryTags.
func (s *Store) CreateEntry(ctx context.Context, e *domain.Entry) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (title, content, title_key, content_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Title,
		e.Content,
		domain.FoldKey(e.Title),
		domain.FoldKey(e.Content),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("entry id: %w", err)
	}
	return nil
}

// GetEntry retrieves an entry with its full tag list.
// Returns store.ErrNotFound if the entry does not exist.
func (s *Store) GetEntry(ctx context.Context, id int64) (*domain.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries e WHERE e.id = ?`, id)

	e, err := scanEntry(row)
	if err != nil {
		return nil, notFound(err)
	}

	if err := s.attachTags(ctx, []*domain.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEntry saves an entry's title and content.
// Returns store.ErrNotFound if the entry does not exist.
func (s *Store) UpdateEntry(ctx context.Context, e *domain.Entry) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries SET
			title = ?,
			content = ?,
			title_key = ?,
			content_key = ?,
			updated_at = ?
		WHERE id = ?`,
		e.Title,
		e.Content,
		domain.FoldKey(e.Title),
		domain.FoldKey(e.Content),
		formatTime(e.UpdatedAt),
		e.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteEntry removes an entry's associations and then the entry.
// Returns store.ErrNotFound if the entry does not exist.
func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entry_tags WHERE entry_id = ?`, id); err != nil {
		return fmt.Errorf("delete entry associations: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	return tx.Commit()
}

// SetEntryTags replaces an entry's association set in one transaction.
// Duplicate ids are collapsed.
func (s *Store) SetEntryTags(ctx context.Context, entryID int64, tagIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM entry_tags WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("clear entry tags: %w", err)
	}

	if len(tagIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO entry_tags (entry_id, tag_id, created_at)
			VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		now := formatTime(time.Now())
		for _, tagID := range tagIDs {
			if _, err := stmt.ExecContext(ctx, entryID, tagID, now); err != nil {
				return fmt.Errorf("tag entry %d with %d: %w", entryID, tagID, err)
			}
		}
	}

	return tx.Commit()
}

// entryFilterClause renders filter as a WHERE clause over entries e.
// ok is false when the filter can match nothing.
func entryFilterClause(filter store.EntryFilter) (clause string, args []any, ok bool) {
	if !filter.Filtered {
		return "", nil, true
	}
	if len(filter.TagIDs) == 0 {
		return "", nil, false
	}
	clause = ` WHERE EXISTS (SELECT 1 FROM entry_tags et WHERE et.entry_id = e.id AND et.tag_id IN (` +
		placeholders(len(filter.TagIDs)) + `))`
	return clause, int64Args(filter.TagIDs), true
}

// CountEntries returns how many entries pass filter.
func (s *Store) CountEntries(ctx context.Context, filter store.EntryFilter) (int, error) {
	where, args, ok := entryFilterClause(filter)
	if !ok {
		return 0, nil
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries e`+where, args...).Scan(&n)
	return n, err
}

// ListEntries returns one page of entries passing filter, newest first,
// each with its full tag list.
func (s *Store) ListEntries(ctx context.Context, filter store.EntryFilter, page store.Page) ([]*domain.Entry, error) {
	where, args, ok := entryFilterClause(filter)
	if !ok {
		return []*domain.Entry{}, nil
	}

	args = append(args, page.Limit(), page.Offset())
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries e`+where+
			` ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?`, args...)
}

// ListAllEntries returns every entry, newest first.
func (s *Store) ListAllEntries(ctx context.Context) ([]*domain.Entry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM entries e ORDER BY e.created_at DESC, e.id DESC`)
}

// EntryIDsWithTags returns the ids of entries carrying any of tagIDs.
func (s *Store) EntryIDsWithTags(ctx context.Context, tagIDs []int64) ([]int64, error) {
	if len(tagIDs) == 0 {
		return []int64{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT entry_id FROM entry_tags WHERE tag_id IN (`+placeholders(len(tagIDs))+`) ORDER BY entry_id`,
		int64Args(tagIDs)...)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// queryEntries runs an entry select and attaches tags to every row.
func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.attachTags(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// attachTags fills Tags and TagIDs on each entry, sorted by tag name.
func (s *Store) attachTags(ctx context.Context, entries []*domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Entry, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT et.entry_id, t.id, t.name
		FROM entry_tags et
		JOIN tags t ON t.id = et.tag_id
		WHERE et.entry_id IN (`)
	sb.WriteString(placeholders(len(ids)))
	sb.WriteString(`)
		ORDER BY et.entry_id, t.name_key, t.id`)

	rows, err := s.db.QueryContext(ctx, sb.String(), int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("load entry tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entryID int64
			tagID   int64
			name    string
		)
		if err := rows.Scan(&entryID, &tagID, &name); err != nil {
			return err
		}
		e := byID[entryID]
		e.TagIDs = append(e.TagIDs, tagID)
		e.Tags = append(e.Tags, name)
	}
	return rows.Err()
}
