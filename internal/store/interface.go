// Package store defines the persistence interface for the diary server.
package store

import (
	"context"
	"time"

	"github.com/listenupapp/diary-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	CountUsers(ctx context.Context) (int, error)

	// Auth sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)

	// Tags
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, id int64) (*domain.Tag, error)
	GetTagByName(ctx context.Context, name string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]domain.Tag, error)
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	DeleteTag(ctx context.Context, id int64) error
	ExistingTagIDs(ctx context.Context, ids []int64) ([]int64, error)

	// Tag closure
	ClosureExists(ctx context.Context) (bool, error)
	EnableClosure(ctx context.Context) (int, error)
	DropClosure(ctx context.Context) error
	RebuildClosure(ctx context.Context) (int, error)
	CountClosureRows(ctx context.Context) (int, error)
	ClosureDescendantsMatching(ctx context.Context, key string) ([]int64, error)
	ClosureDescendantsOf(ctx context.Context, tagID int64) ([]int64, error)

	// Entries
	CreateEntry(ctx context.Context, entry *domain.Entry) error
	GetEntry(ctx context.Context, id int64) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, entry *domain.Entry) error
	DeleteEntry(ctx context.Context, id int64) error
	SetEntryTags(ctx context.Context, entryID int64, tagIDs []int64) error
	CountEntries(ctx context.Context, filter EntryFilter) (int, error)
	ListEntries(ctx context.Context, filter EntryFilter, page Page) ([]*domain.Entry, error)
	ListAllEntries(ctx context.Context) ([]*domain.Entry, error)
	EntryIDsWithTags(ctx context.Context, tagIDs []int64) ([]int64, error)
	SearchEntries(ctx context.Context, scopes []KeywordScope) ([]*domain.Entry, error)

	// Search history
	UpsertSearchHistory(ctx context.Context, term string, at time.Time) error
	ListSearchHistory(ctx context.Context, query HistoryQuery) ([]domain.SearchHistoryEntry, error)
	GetSearchHistory(ctx context.Context, term string) (*domain.SearchHistoryEntry, error)
	DeleteSearchHistory(ctx context.Context, term string) error
}

// EntryFilter narrows an entry listing.
// When Filtered is set only entries carrying one of TagIDs qualify,
// so an empty TagIDs then yields nothing.
type EntryFilter struct {
	Filtered bool
	TagIDs   []int64
}

// KeywordScope is one search keyword with the tags it reaches.
// Keyword is already case-folded. TagIDs is the union of the descendant sets
// of every tag whose name contains the keyword.
type KeywordScope struct {
	Keyword string
	TagIDs  []int64
}

// HistoryOrder selects the search history sort.
type HistoryOrder string

const (
	// HistoryOrderUsage sorts by count, then recency.
	HistoryOrderUsage HistoryOrder = "usage"
	// HistoryOrderTime sorts by recency, then count.
	HistoryOrderTime HistoryOrder = "time"
)

// HistoryQuery filters and orders the search history listing.
type HistoryQuery struct {
	Filter string // case-insensitive substring of the term
	Order  HistoryOrder
}
