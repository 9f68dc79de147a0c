package services

import (
	"sync"

	"github.com/custodia-labs/fintweet/internal/core/domain"
)

// RecordSet accumulates every ingested record for the process lifetime.
// It only grows; appends keep arrival order and readers see whole batches.
type RecordSet struct {
	mu      sync.RWMutex
	records []domain.Record
}

// NewRecordSet creates an empty record set.
func NewRecordSet() *RecordSet {
	return &RecordSet{}
}

// Append adds records in order as one batch and returns the new size.
func (s *RecordSet) Append(records ...domain.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return len(s.records)
}

// Snapshot returns the records appended so far. The returned slice must not
// be modified; later appends never touch its elements.
func (s *RecordSet) Snapshot() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[:len(s.records):len(s.records)]
}

// Len returns the number of records.
func (s *RecordSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
