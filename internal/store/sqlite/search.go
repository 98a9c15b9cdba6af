package sqlite

import (
	"context"
	"strings"

	"github.com/listenupapp/diary-server/internal/domain"
	"github.com/listenupapp/diary-server/internal/store"
)

// SearchEntries returns the entries matching every scope, newest first.
//
// An entry matches a scope when its title or content contains the keyword, or
// when it carries one of the scope's tags. Scopes are ANDed, and each may be
// satisfied by a different clause. Keywords must already be folded.
// Each entry carries its full tag list, not only the tags that matched.
func (s *Store) SearchEntries(ctx context.Context, scopes []store.KeywordScope) ([]*domain.Entry, error) {
	if len(scopes) == 0 {
		return []*domain.Entry{}, nil
	}

	clauses := make([]string, 0, len(scopes))
	var args []any
	for _, sc := range scopes {
		clause := `instr(e.title_key, ?) > 0 OR instr(e.content_key, ?) > 0`
		args = append(args, sc.Keyword, sc.Keyword)

		if len(sc.TagIDs) > 0 {
			clause += ` OR EXISTS (SELECT 1 FROM entry_tags et WHERE et.entry_id = e.id AND et.tag_id IN (` +
				placeholders(len(sc.TagIDs)) + `))`
			args = append(args, int64Args(sc.TagIDs)...)
		}

		clauses = append(clauses, "("+clause+")")
	}

	query := `SELECT ` + entryColumns + ` FROM entries e WHERE ` +
		strings.Join(clauses, " AND ") +
		` ORDER BY e.created_at DESC, e.id DESC`

	return s.queryEntries(ctx, query, args...)
}
