// Package search provides ranked full-text search over diary entries using Bleve.
//
// It complements the exact substring search done in SQL: the index stems
// English words, tolerates typos and scores hits, so "hiking" finds "hiked".
// The SQL store stays the source of truth and the index can be rebuilt from
// it at any time.
package search

import (
	"strconv"

	"github.com/listenupapp/diary-server/internal/domain"
)

// EntryDocument is the Bleve document for one diary entry.
// Tag names are denormalized so a single query covers text and tags.
type EntryDocument struct {
	ID        string   `json:"id"` // Entry id in decimal
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"created_at"` // Unix millis
	UpdatedAt int64    `json:"updated_at"` // Unix millis
}

// DocID returns the index id for an entry id.
func DocID(entryID int64) string {
	return strconv.FormatInt(entryID, 10)
}

// EntryToDocument converts an entry to its index document.
func EntryToDocument(e *domain.Entry) *EntryDocument {
	return &EntryDocument{
		ID:        DocID(e.ID),
		Title:     e.Title,
		Content:   e.Content,
		Tags:      e.Tags,
		CreatedAt: e.CreatedAt.UnixMilli(),
		UpdatedAt: e.UpdatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// Bleve would otherwise use the Go field names, which the mapping does not know.
func (d *EntryDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"content":    d.Content,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	return m
}
