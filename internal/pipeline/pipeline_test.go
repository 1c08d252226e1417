// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/models"
)

// memStore is an in-memory Store used by the pipeline tests.
type memStore struct {
	mu     sync.Mutex
	claims map[string]bool
	events map[string]models.PersistedEvent

	claimErr        error
	claimFailures   atomic.Int64 // fail this many claims before succeeding
	persistErr      error
	persistFailures int // fail this many persists before succeeding
	panicOnID       string
	claimHook       func(evt string)

	claimCalls   atomic.Int64
	persistCalls atomic.Int64
	closeCalls   atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{
		claims: make(map[string]bool),
		events: make(map[string]models.PersistedEvent),
	}
}

func key(topic, id string) string { return topic + "/" + id }

func (s *memStore) Claim(_ context.Context, topic, eventID string) (bool, error) {
	s.claimCalls.Add(1)
	if s.claimHook != nil {
		s.claimHook(eventID)
	}
	if s.panicOnID != "" && eventID == s.panicOnID {
		panic("boom")
	}
	if s.claimErr != nil {
		return false, s.claimErr
	}
	if s.claimFailures.Add(-1) >= 0 {
		return false, errors.New("transient engine failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(topic, eventID)
	if s.claims[k] {
		return false, nil
	}
	s.claims[k] = true
	return true, nil
}

func (s *memStore) Persist(_ context.Context, evt *models.Event) (models.PersistedEvent, error) {
	s.persistCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return models.PersistedEvent{}, s.persistErr
	}
	if s.persistFailures > 0 {
		s.persistFailures--
		return models.PersistedEvent{}, errors.New("transient write failure")
	}
	p := models.NewPersistedEvent(evt, time.Now())
	s.events[key(evt.Topic, evt.EventID)] = p
	return p, nil
}

func (s *memStore) Query(_ context.Context, topic string, limit int) ([]models.PersistedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PersistedEvent, 0, len(s.events))
	for _, e := range s.events {
		if topic == "" || e.Topic == topic {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProcessedAt.Before(out[j].ProcessedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) ListTopics(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var topics []string
	for _, e := range s.events {
		if !seen[e.Topic] {
			seen[e.Topic] = true
			topics = append(topics, e.Topic)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

func (s *memStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = make(map[string]bool)
	s.events = make(map[string]models.PersistedEvent)
	return nil
}

func (s *memStore) Ping(_ context.Context) error { return nil }

func (s *memStore) Close() error {
	s.closeCalls.Add(1)
	return nil
}

func (s *memStore) persistedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.PersistedEvent
}

func (n *recordingNotifier) NotifyPersisted(evt models.PersistedEvent) {
	n.mu.Lock()
	n.events = append(n.events, evt)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func testConsumerConfig() *config.ConsumerConfig {
	return &config.ConsumerConfig{
		PersistRetries:  3,
		RetryBaseDelay:  100 * time.Millisecond,
		RetryMaxDelay:   2 * time.Second,
		StorageTimeout:  time.Second,
		DrainTimeout:    2 * time.Second,
		BreakerFailures: 1000,
		BreakerTimeout:  time.Minute,
	}
}

func newEvent(topic, id string) *models.Event {
	return &models.Event{
		Topic:     topic,
		EventID:   id,
		Timestamp: "2026-01-01T00:00:00Z",
		Source:    "test",
		Payload:   map[string]interface{}{"msg": "hello"},
	}
}

// harness wires a queue, counters and consumer around a memStore.
type harness struct {
	queue    *Queue
	store    *memStore
	counters *Counters
	consumer *Consumer
	cancel   context.CancelFunc
	runErr   chan error
}

func newHarness(t *testing.T, capacity int, store *memStore, cfg *config.ConsumerConfig) *harness {
	t.Helper()
	q := NewQueue(capacity)
	counters := NewCounters()
	c, err := NewConsumer(q, store, counters, cfg)
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}
	c.sleep = func(time.Duration) {}
	return &harness{queue: q, store: store, counters: counters, consumer: c, runErr: make(chan error, 1)}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.runErr <- h.consumer.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.consumer.Done():
		case <-time.After(10 * time.Second):
			t.Error("consumer did not stop")
		}
	})
}

func (h *harness) publish(t *testing.T, evt *models.Event) {
	t.Helper()
	if err := h.queue.Enqueue(evt); err != nil {
		t.Fatalf("Enqueue(%s) error = %v", evt.Identity(), err)
	}
	h.counters.RecordReceived()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) waitProcessed(t *testing.T, n int64) {
	t.Helper()
	waitFor(t, fmt.Sprintf("%d processed", n), func() bool {
		s := h.counters.Snapshot()
		return s.UniqueProcessed+s.DuplicateDropped >= n
	})
}
