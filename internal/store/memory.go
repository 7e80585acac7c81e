// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]DailyRecord // county -> date -> record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]DailyRecord)}
}

func (s *MemoryStore) PutDaily(_ context.Context, rec DailyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	key := countyKey(rec.County)

	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.data[key]
	if !ok {
		days = make(map[string]DailyRecord)
		s.data[key] = days
	}
	days[rec.Date] = rec
	return nil
}

func (s *MemoryStore) PutDailyIfAbsent(_ context.Context, rec DailyRecord) (DailyRecord, error) {
	if err := rec.Validate(); err != nil {
		return DailyRecord{}, err
	}
	key := countyKey(rec.County)

	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.data[key]
	if !ok {
		days = make(map[string]DailyRecord)
		s.data[key] = days
	}
	if existing, ok := days[rec.Date]; ok {
		return existing, nil
	}
	days[rec.Date] = rec
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, county, day string) (DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[countyKey(county)][day]
	if !ok {
		return DailyRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) History(_ context.Context, county string, before time.Time, n int) ([]DailyRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	cutoff := dayString(before)

	s.mu.RLock()
	days := s.data[countyKey(county)]
	out := make([]DailyRecord, 0, len(days))
	for date, rec := range days {
		if date < cutoff {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
