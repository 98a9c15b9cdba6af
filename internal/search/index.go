package search

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/listenupapp/diary-server/internal/domain"
)

// SearchIndex wraps a Bleve index of diary entries.
//
// All public methods are safe for concurrent use. The mutex keeps readers
// out while Rebuild swaps the underlying index.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (discards if nil)
}

// mappingVersion is bumped whenever buildIndexMapping changes.
// A mismatch on startup drops the index so it is rebuilt from the store.
const mappingVersion = "diary-1"

const (
	indexDirName    = "search.bleve"
	versionFileName = "search.version"
	batchSize       = 500
)

// NewSearchIndex opens the index under opts.DataPath, creating it if needed.
// A corrupt index or one built with another mapping version is removed and
// recreated empty; callers detect that with DocumentCount and reindex.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	indexPath := filepath.Join(opts.DataPath, indexDirName)
	versionPath := filepath.Join(opts.DataPath, versionFileName)

	var (
		index bleve.Index
		err   error
	)

	_, statErr := os.Stat(indexPath)
	indexExists := statErr == nil
	needsRebuild := false

	if indexExists {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, will rebuild",
				"new_version", mappingVersion,
			)
			needsRebuild = true
		case string(existing) != mappingVersion:
			logger.Info("search index mapping version changed, will rebuild",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if indexExists && !needsRebuild {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			needsRebuild = true
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexEntry adds or replaces one entry.
func (s *SearchIndex) IndexEntry(e *domain.Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := EntryToDocument(e)
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexEntries adds or replaces entries in batches.
func (s *SearchIndex) IndexEntries(entries []*domain.Entry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := 0; i < len(entries); i += batchSize {
		end := min(i+batchSize, len(entries))

		batch := s.index.NewBatch()
		for _, e := range entries[i:end] {
			doc := EntryToDocument(e)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index entry %d: %w", e.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteEntry removes an entry from the index. Unknown ids are ignored.
func (s *SearchIndex) DeleteEntry(entryID int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(DocID(entryID))
}

// DocumentCount returns the number of indexed entries.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild replaces the index with a fresh one holding exactly entries.
// Searches block until it finishes.
func (s *SearchIndex) Rebuild(entries []*domain.Entry) error {
	s.mu.Lock()
	if err := s.index.Close(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.mu.Unlock()

	if err := s.IndexEntries(entries); err != nil {
		return err
	}

	s.logger.Info("rebuilt search index", "path", s.path, "entries", len(entries))
	return nil
}
