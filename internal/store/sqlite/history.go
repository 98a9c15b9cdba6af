package sqlite

import (
	"context"
	"time"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/store"
)

const historyColumns = `term, count, last_searched`

func scanHistory(scanner interface{ Scan(dest ...any) error }) (*domain.SearchHistoryEntry, error) {
	var (
		h            domain.SearchHistoryEntry
		lastSearched string
	)

	if err := scanner.Scan(&h.Term, &h.Count, &lastSearched); err != nil {
		return nil, err
	}

	var err error
	h.LastSearched, err = parseTime(lastSearched)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// UpsertSearchHistory records one search for term.
// A new term starts at count 1; a known term is incremented.
// last_searched never moves backwards, even if at is older than the stored value.
func (s *Store) UpsertSearchHistory(ctx context.Context, term string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_history (term, term_key, count, last_searched)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(term) DO UPDATE SET
			count = count + 1,
			last_searched = max(last_searched, excluded.last_searched)`,
		term,
		domain.FoldKey(term),
		formatTime(at),
	)
	return err
}

// ListSearchHistory returns history rows matching query.Filter, sorted by query.Order.
// Unknown orders sort by usage.
func (s *Store) ListSearchHistory(ctx context.Context, query store.HistoryQuery) ([]domain.SearchHistoryEntry, error) {
	sqlQuery := `SELECT ` + historyColumns + ` FROM search_history`
	var args []any

	if query.Filter != "" {
		sqlQuery += ` WHERE instr(term_key, ?) > 0`
		args = append(args, domain.FoldKey(query.Filter))
	}

	switch query.Order {
	case store.HistoryOrderTime:
		sqlQuery += ` ORDER BY last_searched DESC, count DESC, term ASC`
	default:
		sqlQuery += ` ORDER BY count DESC, last_searched DESC, term ASC`
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SearchHistoryEntry{}
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// GetSearchHistory returns the row for term.
// Returns store.ErrNotFound if the term was never recorded.
func (s *Store) GetSearchHistory(ctx context.Context, term string) (*domain.SearchHistoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+historyColumns+` FROM search_history WHERE term = ?`, term)

	h, err := scanHistory(row)
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

// DeleteSearchHistory deletes the row for term.
// Returns store.ErrNotFound if the term was never recorded.
func (s *Store) DeleteSearchHistory(ctx context.Context, term string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE term = ?`, term)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
