package domain

import "time"

// RecentSearchLimit caps the per-session recency list.
const RecentSearchLimit = 20

// SearchHistoryEntry is a persisted search term with its usage statistics.
// Terms are unique; repeated searches bump Count and LastSearched.
type SearchHistoryEntry struct {
	Term         string    `json:"term"`
	Count        int       `json:"count"`
	LastSearched time.Time `json:"last_searched"`
}

// PushRecent returns a new recency list with query moved to the front.
// A repeated query is moved rather than duplicated and the list is cut to limit.
// Blank queries leave the list untouched.
func PushRecent(list []string, query string, limit int) []string {
	if query == "" {
		return list
	}

	out := make([]string, 0, min(len(list)+1, limit))
	out = append(out, query)
	for _, q := range list {
		if len(out) >= limit {
			break
		}
		if q == query {
			continue
		}
		out = append(out, q)
	}
	return out
}
