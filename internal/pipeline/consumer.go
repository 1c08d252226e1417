// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/aggregator/internal/config"
	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/metrics"
	"github.com/tomtom215/aggregator/internal/models"
)

// State is the consumer lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

const (
	breakerName = "store"

	// maxBreakerPoll bounds the wait between claim attempts while the
	// store breaker is open.
	maxBreakerPoll = 250 * time.Millisecond
)

// errClaimInterrupted reports that shutdown began while a claim was waiting
// for the store breaker. The event was not handled.
var errClaimInterrupted = errors.New("claim interrupted while store breaker open")

// Consumer is the single writer that drains the queue into the store.
// Events are handled one at a time: claim and persist for one event finish
// before the next is dequeued.
type Consumer struct {
	queue    *Queue
	store    Store
	counters *Counters
	cfg      config.ConsumerConfig
	breaker  *gobreaker.CircuitBreaker[bool]

	notifierMu sync.RWMutex
	notifier   Notifier

	state    atomic.Int32
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	// sleep waits between persist attempts; replaced in tests.
	sleep func(time.Duration)
}

// NewConsumer wires a consumer to its queue, store and counters.
func NewConsumer(queue *Queue, store Store, counters *Counters, cfg *config.ConsumerConfig) (*Consumer, error) {
	if queue == nil {
		return nil, errors.New("queue required")
	}
	if store == nil {
		return nil, errors.New("store required")
	}
	if counters == nil {
		return nil, errors.New("counters required")
	}
	if cfg == nil {
		return nil, errors.New("consumer config required")
	}

	c := &Consumer{
		queue:    queue,
		store:    store,
		counters: counters,
		cfg:      *cfg,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		sleep:    time.Sleep,
	}
	c.breaker = gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
	})
	metrics.SetConsumerState(int(StateIdle))
	return c, nil
}

// SetNotifier registers a sink for persisted events. nil disables it.
func (c *Consumer) SetNotifier(n Notifier) {
	c.notifierMu.Lock()
	c.notifier = n
	c.notifierMu.Unlock()
}

// State returns the current lifecycle state.
func (c *Consumer) State() State {
	return State(c.state.Load())
}

// Done is closed once the consumer reaches STOPPED.
func (c *Consumer) Done() <-chan struct{} {
	return c.doneCh
}

func (c *Consumer) setState(s State) {
	c.state.Store(int32(s))
	metrics.SetConsumerState(int(s))
}

// Run processes events until ctx is cancelled, Close is called or the queue
// is closed. It then drains, closes the store and returns nil. Run may be
// called once; later calls return ErrStopped.
func (c *Consumer) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if c.State() == StateStopped {
			return ErrStopped
		}
		return ErrAlreadyRunning
	}
	metrics.SetConsumerState(int(StateRunning))
	defer close(c.doneCh)

	logging.Info().
		Int("queue_capacity", c.queue.Cap()).
		Int("persist_retries", c.cfg.PersistRetries).
		Msg("Consumer started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	// Storage calls must not be cut short by shutdown.
	storageCtx := context.WithoutCancel(ctx)

	var pending *models.Event
	for {
		evt, err := c.queue.Dequeue(runCtx)
		if err != nil {
			break
		}
		if !c.handle(storageCtx, runCtx, evt) {
			pending = evt
			break
		}
	}

	c.drain(storageCtx, pending)
	c.shutdown()
	return nil
}

// Close signals shutdown and waits for the drain to finish. A consumer that
// never ran is stopped directly.
func (c *Consumer) Close() error {
	if c.state.CompareAndSwap(int32(StateIdle), int32(StateStopped)) {
		metrics.SetConsumerState(int(StateStopped))
		c.queue.Close()
		err := c.store.Close()
		close(c.doneCh)
		return err
	}
	c.stopOnce.Do(func() { close(c.stopCh) })
	<-c.doneCh
	return nil
}

// drain processes pending (an event interrupted at shutdown, may be nil) and
// then the admitted events until the queue is empty or the drain timeout
// expires.
func (c *Consumer) drain(ctx context.Context, pending *models.Event) {
	c.setState(StateDraining)
	c.queue.Close()

	deadline := time.Now().Add(c.cfg.DrainTimeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	drained := 0
	interrupted := 0
	for time.Now().Before(deadline) {
		evt := pending
		pending = nil
		if evt == nil {
			var ok bool
			if evt, ok = c.queue.TryDequeue(); !ok {
				break
			}
		}
		if !c.handle(ctx, waitCtx, evt) {
			log := logging.Event("consumer", evt.Topic, evt.EventID)
			log.Warn().Msg("Store breaker still open at drain deadline, abandoning event")
			interrupted++
			break
		}
		drained++
	}
	if pending != nil {
		interrupted++
	}

	if abandoned := c.queue.Len() + interrupted; abandoned > 0 {
		logging.Warn().
			Int("abandoned", abandoned).
			Int("drained", drained).
			Dur("drain_timeout", c.cfg.DrainTimeout).
			Msg("Drain timeout expired, abandoning queued events")
		return
	}
	if drained > 0 {
		logging.Info().Int("count", drained).Msg("Consumer drained queued events during shutdown")
	}
}

func (c *Consumer) shutdown() {
	c.setState(StateStopped)
	if err := c.store.Close(); err != nil {
		logging.Error().Err(err).Msg("Failed to close store")
	}
	snap := c.counters.Snapshot()
	logging.Info().
		Int64("unique_processed", snap.UniqueProcessed).
		Int64("duplicate_dropped", snap.DuplicateDropped).
		Msg("Consumer stopped")
}

// handle runs claim and persist for one event. Failures and panics are
// logged and the event is abandoned. While the store breaker is open the
// claim is retried until wait is done; handle then returns false and the
// event is left unhandled.
func (c *Consumer) handle(ctx, wait context.Context, evt *models.Event) (handled bool) {
	start := time.Now()
	log := logging.Event("consumer", evt.Topic, evt.EventID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered panic while handling event")
			metrics.RecordFailure("panic")
			metrics.RecordProcessed("failed", time.Since(start))
			handled = true
		}
	}()

	claimed, err := c.claim(ctx, wait, evt)
	if errors.Is(err, errClaimInterrupted) {
		return false
	}
	if err != nil {
		log.Error().Err(err).Msg("Claim failed, abandoning event")
		metrics.RecordFailure("claim")
		metrics.RecordProcessed("failed", time.Since(start))
		return true
	}
	if !claimed {
		c.counters.recordDuplicate()
		metrics.RecordProcessed("duplicate", time.Since(start))
		log.Debug().Msg("Duplicate dropped")
		return true
	}

	persisted, err := c.persist(ctx, evt)
	if err != nil {
		log.Error().
			Err(err).
			Str("timestamp", evt.Timestamp).
			Str("source", evt.Source).
			Interface("payload", evt.Payload).
			Msg("Persist failed after claim, event is claimed but not stored")
		metrics.RecordFailure("persist")
		metrics.RecordClaimedUnpersisted()
		metrics.RecordProcessed("failed", time.Since(start))
		return true
	}

	c.counters.recordUnique()
	metrics.RecordProcessed("unique", time.Since(start))

	c.notifierMu.RLock()
	n := c.notifier
	c.notifierMu.RUnlock()
	if n != nil {
		n.NotifyPersisted(persisted)
	}
	return true
}

// claim is guarded by the circuit breaker so an unhealthy store stops
// accepting claims instead of leaving identities claimed but unpersisted.
// A rejected call never reached the store: the same event is retried once
// the breaker lets a request through, or errClaimInterrupted is returned
// when wait is done first.
func (c *Consumer) claim(ctx, wait context.Context, evt *models.Event) (bool, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		claimed, err := c.breaker.Execute(func() (bool, error) {
			cctx, cancel := context.WithTimeout(ctx, c.cfg.StorageTimeout)
			defer cancel()
			return c.store.Claim(cctx, evt.Topic, evt.EventID)
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.RecordBreakerRequest(breakerName, "rejected")
			if timer == nil {
				log := logging.Event("consumer", evt.Topic, evt.EventID)
				log.Warn().Msg("Store breaker open, holding event until it half-opens")
				timer = time.NewTimer(c.breakerPoll())
			} else {
				timer.Reset(c.breakerPoll())
			}
			select {
			case <-wait.Done():
				return false, fmt.Errorf("claim %s: %w", evt.Identity(), errClaimInterrupted)
			case <-timer.C:
			}
			continue
		case err != nil:
			metrics.RecordBreakerRequest(breakerName, "failure")
			return false, fmt.Errorf("claim %s: %w", evt.Identity(), err)
		default:
			metrics.RecordBreakerRequest(breakerName, "success")
			return claimed, nil
		}
	}
}

func (c *Consumer) breakerPoll() time.Duration {
	if d := c.cfg.BreakerTimeout; d > 0 && d < maxBreakerPoll {
		return d
	}
	return maxBreakerPoll
}

// persist stores evt, retrying with exponential backoff.
func (c *Consumer) persist(ctx context.Context, evt *models.Event) (models.PersistedEvent, error) {
	attempts := c.cfg.PersistRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt - 1)
			metrics.RecordPersistRetry()
			logging.Warn().
				Str("topic", evt.Topic).
				Str("event_id", evt.EventID).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Err(lastErr).
				Msg("Retrying persist")
			c.sleep(delay)
		}

		pctx, cancel := context.WithTimeout(ctx, c.cfg.StorageTimeout)
		persisted, err := c.store.Persist(pctx, evt)
		cancel()
		if err == nil {
			return persisted, nil
		}
		lastErr = err
	}
	return models.PersistedEvent{}, fmt.Errorf("persist %s failed after %d attempts: %w", evt.Identity(), attempts, lastErr)
}

// calculateBackoff returns base * 2^attempt, capped at the configured max.
func (c *Consumer) calculateBackoff(attempt int) time.Duration {
	base := c.cfg.RetryBaseDelay
	maxBackoff := c.cfg.RetryMaxDelay
	if maxBackoff <= 0 {
		maxBackoff = base
	}
	if attempt > 30 {
		return maxBackoff
	}
	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if backoff < 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}
