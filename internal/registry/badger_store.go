// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gatekeeper/internal/models"
)

const baselineKeyPrefix = "baseline:"

// BadgerStore persists baselines in BadgerDB, one JSON value per principal.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerStore opens (or creates) a Badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for trust registry: %w", err)
	}
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// NewBadgerStore wraps an already open database. Close leaves it open.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func baselineKey(principal string) []byte {
	return []byte(baselineKeyPrefix + normalizePrincipal(principal))
}

func (s *BadgerStore) Get(_ context.Context, principal string) (*models.TrustBaseline, error) {
	var baseline *models.TrustBaseline

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(baselineKey(principal))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get baseline: %w", err)
		}
		return item.Value(func(val []byte) error {
			var b models.TrustBaseline
			if err := json.Unmarshal(val, &b); err != nil {
				return fmt.Errorf("unmarshal baseline: %w", err)
			}
			baseline = &b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return baseline, nil
}

func (s *BadgerStore) Put(_ context.Context, baseline *models.TrustBaseline) error {
	data, err := json.Marshal(baseline)
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(baselineKey(baseline.Principal), data); err != nil {
			return fmt.Errorf("set baseline: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) Delete(_ context.Context, principal string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(baselineKey(principal))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete baseline: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) Count(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(baselineKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count baselines: %w", err)
	}
	return count, nil
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
