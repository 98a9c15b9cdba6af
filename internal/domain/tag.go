package domain

import "time"

// Tag is a named label attachable to diary entries.
// Tags nest through ParentID; a nil ParentID marks a root.
// The parent graph is expected to be a forest, but readers must not rely on it.
type Tag struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ParentID   *int64    `json:"parent_id,omitempty"`
	UsageCount int       `json:"usage_count"` // Entries carrying this tag, filled by listing queries only
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsRoot returns true if the tag has no parent.
func (t *Tag) IsRoot() bool {
	return t.ParentID == nil
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}

// TagNode is a tag placed in the display forest.
type TagNode struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	ParentID *int64     `json:"parent_id,omitempty"`
	Tier     int        `json:"tier"`
	Children []*TagNode `json:"children"`
}

// TagTier groups every tag sharing one depth.
type TagTier struct {
	Tier int   `json:"tier"`
	Tags []Tag `json:"tags"`
}

// EntryTag represents the many-to-many relationship between entries and tags.
type EntryTag struct {
	EntryID   int64     `json:"entry_id"`
	TagID     int64     `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}
