package domain

import "time"

// Entry is a single diary entry.
// Tags holds the names of every tag attached to the entry, sorted by name;
// TagIDs holds the matching ids in the same order.
type Entry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	TagIDs    []int64   `json:"tag_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (e *Entry) Touch() {
	e.UpdatedAt = time.Now()
}
