package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a ranked search.
type SearchParams struct {
	Query     string
	Limit     int
	Offset    int
	Highlight bool // Include match fragments for title and content
}

// DefaultLimit is used when SearchParams.Limit is not positive.
const DefaultLimit = 20

// SearchResult holds ranked hits.
type SearchResult struct {
	Query  string      `json:"query"`
	Total  uint64      `json:"total"`
	TookMs int64       `json:"took_ms"`
	Hits   []SearchHit `json:"hits"`
}

// SearchHit is one ranked entry.
type SearchHit struct {
	EntryID    int64             `json:"entry_id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Tags       []string          `json:"tags,omitempty"`
	CreatedAt  int64             `json:"created_at"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Search runs a ranked query. A blank query returns no hits without
// touching the index.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	params.Query = strings.TrimSpace(params.Query)
	if params.Query == "" {
		return &SearchResult{Hits: []SearchHit{}}, nil
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params.Query), params.Limit, params.Offset, false)
	req.SortBy([]string{"-_score", "-created_at"})
	req.Fields = []string{"id", "title", "tags", "created_at"}

	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("content")
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]SearchHit, 0, len(res.Hits)),
	}

	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping search hit with malformed id", "doc_id", hit.ID)
			continue
		}
		h := SearchHit{EntryID: id, Score: hit.Score}

		if t, ok := hit.Fields["title"].(string); ok {
			h.Title = t
		}
		h.Tags = stringsField(hit.Fields["tags"])
		if c, ok := hit.Fields["created_at"].(float64); ok {
			h.CreatedAt = int64(c)
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string, len(hit.Fragments))
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery matches the text against title, tags and content in
// that order of weight, with typo and prefix tolerance on the title.
func buildSearchQuery(text string) query.Query {
	titleMatch := bleve.NewMatchQuery(text)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)

	tagMatch := bleve.NewMatchQuery(text)
	tagMatch.SetField("tags")
	tagMatch.SetBoost(1.5)

	contentMatch := bleve.NewMatchQuery(text)
	contentMatch.SetField("content")
	contentMatch.SetBoost(1.0)

	queries := []query.Query{titleMatch, tagMatch, contentMatch}

	// Fuzzy and prefix queries are not analyzed, so only apply them to
	// single words.
	if !strings.ContainsAny(text, " \t\n") {
		lower := strings.ToLower(text)

		fuzzy := bleve.NewFuzzyQuery(lower)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)
		queries = append(queries, fuzzy)

		if len(lower) >= 2 {
			prefix := bleve.NewPrefixQuery(lower)
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			queries = append(queries, prefix)
		}
	}

	return bleve.NewDisjunctionQuery(queries...)
}

// stringsField reads a stored multi-value field. Bleve returns a bare
// string when only one value was indexed.
func stringsField(v any) []string {
	switch vv := v.(type) {
	case string:
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
