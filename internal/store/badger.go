// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func badgerPath(dataDir string) string {
	return filepath.Join(dataDir, "badger")
}

// BadgerStore keeps history in an embedded badger database.
// Keys are "day:<county>:<YYYY-MM-DD>" so a prefix scan is date ordered.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func dayPrefix(county string) []byte {
	return []byte("day:" + countyKey(county) + ":")
}

func (s *BadgerStore) PutDaily(_ context.Context, rec DailyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := append(dayPrefix(rec.County), rec.Date...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

func (s *BadgerStore) PutDailyIfAbsent(_ context.Context, rec DailyRecord) (DailyRecord, error) {
	if err := rec.Validate(); err != nil {
		return DailyRecord{}, err
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return DailyRecord{}, err
	}
	key := append(dayPrefix(rec.County), rec.Date...)
	var stored DailyRecord
	// A concurrent insert of the same key aborts this transaction with
	// ErrConflict; the retry then reads the winner.
	for attempt := 0; attempt < 3; attempt++ {
		stored = rec
		err = s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			switch {
			case err == nil:
				return item.Value(func(val []byte) error {
					return json.Unmarshal(val, &stored)
				})
			case errors.Is(err, badger.ErrKeyNotFound):
				return txn.Set(key, buf)
			default:
				return err
			}
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return DailyRecord{}, fmt.Errorf("store: put daily: %w", err)
	}
	return stored, nil
}

func (s *BadgerStore) Get(_ context.Context, county, day string) (DailyRecord, error) {
	key := append(dayPrefix(county), day...)
	var rec DailyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return DailyRecord{}, ErrNotFound
	}
	if err != nil {
		return DailyRecord{}, fmt.Errorf("store: get: %w", err)
	}
	return rec, nil
}

func (s *BadgerStore) History(ctx context.Context, county string, before time.Time, n int) ([]DailyRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	prefix := dayPrefix(county)
	// Reverse iteration starts at the greatest key <= seek.
	seek := append(append([]byte{}, prefix...), dayString(before)...)

	var out []DailyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		cutoff := string(seek)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < n; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if string(item.Key()) >= cutoff {
				continue
			}
			var rec DailyRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }
