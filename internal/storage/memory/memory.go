// Package memory is a process-local state backend. Documents are kept
// encoded so callers never share memory with the store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"financia/internal/core"
	"financia/internal/snapshot"
)

type Store struct {
	mu   sync.RWMutex
	docs map[string]entry
}

type entry struct {
	revision uint64
	data     []byte
}

func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

// SaveState keeps doc unless a newer revision is already stored.
func (s *Store) SaveState(_ context.Context, userID string, doc snapshot.Document) error {
	data, err := snapshot.Encode(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.docs[userID]; ok && cur.revision > doc.Revision {
		return fmt.Errorf("save state for %s at revision %d: %w", userID, doc.Revision, core.ErrStaleRevision)
	}
	s.docs[userID] = entry{revision: doc.Revision, data: data}
	return nil
}

func (s *Store) LoadState(_ context.Context, userID string) (snapshot.Document, bool, error) {
	s.mu.RLock()
	e, ok := s.docs[userID]
	s.mu.RUnlock()
	if !ok {
		return snapshot.Document{}, false, nil
	}
	doc, err := snapshot.Decode(e.data)
	if err != nil {
		return snapshot.Document{}, false, err
	}
	return doc, true, nil
}

func (s *Store) Close() error { return nil }
