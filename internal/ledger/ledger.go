// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/metrics"
	"github.com/tomtom215/aggregator/internal/models"
)

const backendName = config.BackendBadger

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("ledger: store is closed")

// record is the stored value of an event key.
type record struct {
	Timestamp   string                 `json:"timestamp"`
	Source      string                 `json:"source"`
	Payload     map[string]interface{} `json:"payload"`
	ProcessedAt time.Time              `json:"processed_at"`
}

// Store is the Badger dedup store.
type Store struct {
	db   *badger.DB
	path string

	stampMu   sync.Mutex
	lastStamp time.Time

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	stopGC    chan struct{}
	gcDone    chan struct{}

	gcInterval time.Duration
	gcRatio    float64
}

// Open opens (or creates) the Badger directory at cfg.Path.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory %s: %w", cfg.Path, err)
	}
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(true).
		WithNumCompactors(2).
		WithLogger(nil)

	s, err := open(opts, cfg.Path)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("path", cfg.Path).Bool("sync_writes", true).Msg("Badger dedup store opened")
	return s, nil
}

func open(opts badger.Options, path string) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	s := &Store{
		db:         db,
		path:       path,
		stopGC:     make(chan struct{}),
		gcDone:     make(chan struct{}),
		gcInterval: 5 * time.Minute,
		gcRatio:    0.5,
	}
	if opts.InMemory {
		close(s.gcDone)
	} else {
		go s.gcLoop()
	}
	return s, nil
}

func (s *Store) nextStamp() time.Time {
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	now := time.Now().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(op, backendName, time.Since(start), err)
}

// Claim stores the claim key if absent. A commit aborted by a concurrent
// claimant of the same key counts as a duplicate.
func (s *Store) Claim(ctx context.Context, topic, eventID string) (claimed bool, err error) {
	start := time.Now()
	defer func() { observe("claim", start, err) }()

	if s.closed.Load() {
		return false, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkTopic(topic); err != nil {
		return false, err
	}

	key := claimKey(topic, eventID)
	stamp := s.nextStamp()
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			claimed = false
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get claim: %w", err)
		}
		if err := txn.Set(key, encodeNanos(stamp.UnixNano())); err != nil {
			return fmt.Errorf("set claim: %w", err)
		}
		claimed = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim %s/%s: %w", topic, eventID, err)
	}
	return claimed, nil
}

// Persist upserts the event record and moves its index entries to the new
// processed_at.
func (s *Store) Persist(ctx context.Context, evt *models.Event) (persisted models.PersistedEvent, err error) {
	start := time.Now()
	defer func() { observe("persist", start, err) }()

	if s.closed.Load() {
		return models.PersistedEvent{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return models.PersistedEvent{}, err
	}
	if err := checkTopic(evt.Topic); err != nil {
		return models.PersistedEvent{}, err
	}

	stamp := s.nextStamp()
	persisted = models.NewPersistedEvent(evt, stamp)
	data, err := json.Marshal(&record{
		Timestamp:   persisted.Timestamp,
		Source:      persisted.Source,
		Payload:     persisted.Payload,
		ProcessedAt: persisted.ProcessedAt,
	})
	if err != nil {
		return models.PersistedEvent{}, fmt.Errorf("marshal event: %w", err)
	}

	key := eventKey(evt.Topic, evt.EventID)
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var old record
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); err != nil {
				return fmt.Errorf("unmarshal previous event: %w", err)
			}
			nanos := old.ProcessedAt.UnixNano()
			if err := txn.Delete(processedKey(nanos, evt.Topic, evt.EventID)); err != nil {
				return fmt.Errorf("delete index: %w", err)
			}
			if err := txn.Delete(topicIndexKey(nanos, evt.Topic, evt.EventID)); err != nil {
				return fmt.Errorf("delete topic index: %w", err)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("get event: %w", err)
		}

		nanos := stamp.UnixNano()
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set event: %w", err)
		}
		if err := txn.Set(processedKey(nanos, evt.Topic, evt.EventID), nil); err != nil {
			return fmt.Errorf("set index: %w", err)
		}
		if err := txn.Set(topicIndexKey(nanos, evt.Topic, evt.EventID), nil); err != nil {
			return fmt.Errorf("set topic index: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.PersistedEvent{}, fmt.Errorf("failed to persist %s/%s: %w", evt.Topic, evt.EventID, err)
	}
	return persisted, nil
}

// Query walks the processed_at index, oldest first. An empty topic matches
// every topic.
func (s *Store) Query(ctx context.Context, topic string, limit int) (events []models.PersistedEvent, err error) {
	start := time.Now()
	defer func() { observe("query", start, err) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	if err := checkTopic(topic); err != nil {
		return nil, err
	}
	prefix := []byte{prefixProcessed}
	if topic != "" {
		prefix = topicPrefix(topic)
	}

	events = make([]models.PersistedEvent, 0)
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := it.Item().Key()

			var t, id string
			var err error
			if topic == "" {
				t, id, err = identityFromProcessedKey(key)
			} else {
				t = topic
				id, err = eventIDFromTopicKey(key, topic)
			}
			if err != nil {
				return err
			}

			e, err := s.loadEvent(txn, t, id)
			if err != nil {
				return err
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

func (s *Store) loadEvent(txn *badger.Txn, topic, eventID string) (models.PersistedEvent, error) {
	item, err := txn.Get(eventKey(topic, eventID))
	if err != nil {
		return models.PersistedEvent{}, fmt.Errorf("get event %s/%s: %w", topic, eventID, err)
	}
	var rec record
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
		return models.PersistedEvent{}, fmt.Errorf("unmarshal event %s/%s: %w", topic, eventID, err)
	}
	if rec.Payload == nil {
		rec.Payload = map[string]interface{}{}
	}
	return models.PersistedEvent{
		Topic:       topic,
		EventID:     eventID,
		Timestamp:   rec.Timestamp,
		Source:      rec.Source,
		Payload:     rec.Payload,
		ProcessedAt: rec.ProcessedAt.UTC(),
	}, nil
}

// ListTopics returns the distinct topics that have persisted events, sorted.
func (s *Store) ListTopics(ctx context.Context) (topics []string, err error) {
	start := time.Now()
	defer func() { observe("list_topics", start, err) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}

	topics = make([]string, 0)
	prefix := []byte{prefixEvent}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(prefix)
		for it.ValidForPrefix(prefix) {
			if err := ctx.Err(); err != nil {
				return err
			}
			topic, _, err := parseIdentity(it.Item().Key()[1:])
			if err != nil {
				return err
			}
			if n := len(topics); n > 0 && topics[n-1] == topic {
				it.Next()
				continue
			}
			topics = append(topics, topic)

			// Skip the remaining events of this topic.
			it.Seek(append(append([]byte{prefixEvent}, identity(topic, "")...), 0xFF))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	sort.Strings(topics)
	return topics, nil
}

// ClearAll drops every key.
func (s *Store) ClearAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("clear_all", start, err) }()

	if s.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	return nil
}

// Counts returns the number of claim records and persisted events.
func (s *Store) Counts(ctx context.Context) (claims, events int64, err error) {
	if s.closed.Load() {
		return 0, 0, ErrClosed
	}
	count := func(txn *badger.Txn, p byte) int64 {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{p}
		it := txn.NewIterator(opts)
		defer it.Close()
		var n int64
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			n++
		}
		return n
	}
	err = s.db.View(func(txn *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		claims = count(txn, prefixClaim)
		events = count(txn, prefixEvent)
		return nil
	})
	return claims, events, err
}

// Ping reports whether the store is usable.
func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() || s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close syncs and closes the database. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stopGC)
		<-s.gcDone

		if err := s.db.Sync(); err != nil {
			logging.Warn().Err(err).Msg("Failed to sync ledger before close")
		}
		if err := s.db.Close(); err != nil {
			s.closeErr = fmt.Errorf("close BadgerDB: %w", err)
			return
		}
		logging.Info().Str("path", s.path).Msg("Badger dedup store closed")
	})
	return s.closeErr
}

// RunGC reclaims value log space until nothing is left to rewrite.
func (s *Store) RunGC() error {
	if s.closed.Load() {
		return ErrClosed
	}
	for {
		err := s.db.RunValueLogGC(s.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

func (s *Store) gcLoop() {
	defer close(s.gcDone)
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Ledger value log GC failed")
			}
		}
	}
}
