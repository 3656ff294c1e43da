package document

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/google/uuid"
)

// DocumentStore holds the owner's documents in memory and assigns numbers
type DocumentStore struct {
	mu       sync.RWMutex
	docs     map[uuid.UUID]*document.Document
	counters map[document.DocumentType]int
}

// NewDocumentStore creates an empty document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:     make(map[uuid.UUID]*document.Document),
		counters: make(map[document.DocumentType]int),
	}
}

// NextNumber reserves the next sequential number for docType, e.g. FAC-000042
func (s *DocumentStore) NextNumber(docType document.DocumentType) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[docType]++
	return formatNumber(docType, s.counters[docType])
}

// Get returns a copy of the document
func (s *DocumentStore) Get(_ context.Context, id uuid.UUID) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}
	return d.Clone(), nil
}

// Save stores a copy of the document
func (s *DocumentStore) Save(_ context.Context, d *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d.Clone()
	s.observeNumberLocked(d)
	return nil
}

// ListFilter narrows List results
type ListFilter struct {
	Type           document.DocumentType
	CustomerID     *uuid.UUID
	IncludeDeleted bool
}

// List returns documents newest first
func (s *DocumentStore) List(_ context.Context, filter ListFilter) []*document.Document {
	s.mu.RLock()
	out := make([]*document.Document, 0, len(s.docs))
	for _, d := range s.docs {
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		if filter.CustomerID != nil && (d.CustomerID == nil || *d.CustomerID != *filter.CustomerID) {
			continue
		}
		if d.IsDeleted() && !filter.IncludeDeleted {
			continue
		}
		out = append(out, d.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].Number > out[j].Number
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// Snapshot returns copies of every document, deleted ones included
func (s *DocumentStore) Snapshot() []*document.Document {
	return s.List(context.Background(), ListFilter{IncludeDeleted: true})
}

// Load replaces the store content
func (s *DocumentStore) Load(docs []*document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[uuid.UUID]*document.Document, len(docs))
	s.counters = make(map[document.DocumentType]int)
	for _, d := range docs {
		s.docs[d.ID] = d.Clone()
		s.observeNumberLocked(d)
	}
}

// MergeRemote replaces local documents with their remote version. Local-only
// documents and documents modified locally after since are kept.
func (s *DocumentStore) MergeRemote(remote []*document.Document, since time.Time) (replaced, kept int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range remote {
		if local, ok := s.docs[r.ID]; ok && local.UpdatedAt.After(since) {
			kept++
			continue
		}
		s.docs[r.ID] = r.Clone()
		s.observeNumberLocked(r)
		replaced++
	}
	return replaced, kept
}

// observeNumberLocked keeps counters ahead of every number already in use
func (s *DocumentStore) observeNumberLocked(d *document.Document) {
	prefix := d.Type.NumberPrefix() + "-"
	if !strings.HasPrefix(d.Number, prefix) {
		return
	}
	n, err := strconv.Atoi(strings.TrimPrefix(d.Number, prefix))
	if err != nil {
		return
	}
	if n > s.counters[d.Type] {
		s.counters[d.Type] = n
	}
}

func formatNumber(docType document.DocumentType, n int) string {
	return fmt.Sprintf("%s-%06d", docType.NumberPrefix(), n)
}
