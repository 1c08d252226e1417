// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

type fakeAdmitter struct {
	mu       sync.Mutex
	admitted []*models.Event
	rejected []string
	err      error
}

func (f *fakeAdmitter) Admit(source string, evt *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if source != pipeline.SourceNATS {
		return errors.New("unexpected source " + source)
	}
	f.admitted = append(f.admitted, evt)
	return nil
}

func (f *fakeAdmitter) Reject(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, source)
}

func testIngressConfig() IngressConfig {
	return IngressConfig{
		Subject:              "events.>",
		RetryMaxRetries:      1,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     5 * time.Millisecond,
		CloseTimeout:         time.Second,
	}
}

func newTestIngress(t *testing.T, admitter EventAdmitter, factory SubscriberFactory) *Ingress {
	t.Helper()
	if factory == nil {
		factory = func() (message.Subscriber, error) { return nil, errors.New("unused") }
	}
	ing, err := NewIngress(testIngressConfig(), admitter, factory, watermill.NopLogger{})
	if err != nil {
		t.Fatalf("NewIngress() error = %v", err)
	}
	return ing
}

func TestNewIngress_Validation(t *testing.T) {
	factory := func() (message.Subscriber, error) { return nil, nil }

	cfg := testIngressConfig()
	cfg.Subject = ""
	if _, err := NewIngress(cfg, &fakeAdmitter{}, factory, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("empty subject error = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewIngress(testIngressConfig(), nil, factory, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil admitter error = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewIngress(testIngressConfig(), &fakeAdmitter{}, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil factory error = %v, want ErrInvalidConfig", err)
	}
}

func TestIngress_HandleAdmitsValidEvent(t *testing.T) {
	admitter := &fakeAdmitter{}
	ing := newTestIngress(t, admitter, nil)

	msg := message.NewMessage("1", []byte(`{"topic":"app.logs","event_id":"e1","timestamp":"2026-01-01T00:00:00Z","source":"nats-producer"}`))
	if err := ing.Handle(msg); err != nil {
		t.Fatalf("Handle() error = %v, want nil (ack)", err)
	}

	if len(admitter.admitted) != 1 {
		t.Fatalf("admitted %d events, want 1", len(admitter.admitted))
	}
	evt := admitter.admitted[0]
	if evt.Identity() != "app.logs/e1" {
		t.Errorf("identity = %q", evt.Identity())
	}
	if evt.Payload == nil {
		t.Error("missing payload should normalize to an empty object")
	}
}

func TestIngress_HandleDropsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"topic":`},
		{"not an object", `[1,2,3]`},
		{"missing event_id", `{"topic":"t","timestamp":"x","source":"s"}`},
		{"wrong field type", `{"topic":"t","event_id":5,"timestamp":"x","source":"s"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admitter := &fakeAdmitter{}
			ing := newTestIngress(t, admitter, nil)

			if err := ing.Handle(message.NewMessage("1", []byte(tt.payload))); err != nil {
				t.Errorf("Handle() error = %v, want nil (ack and drop)", err)
			}
			if len(admitter.admitted) != 0 {
				t.Errorf("admitted %d events, want 0", len(admitter.admitted))
			}
			if len(admitter.rejected) != 1 || admitter.rejected[0] != pipeline.SourceNATS {
				t.Errorf("rejected = %v, want [nats]", admitter.rejected)
			}
		})
	}
}

func TestIngress_HandleNacksWhenQueueFull(t *testing.T) {
	for _, admitErr := range []error{pipeline.ErrQueueFull, pipeline.ErrQueueClosed} {
		t.Run(admitErr.Error(), func(t *testing.T) {
			admitter := &fakeAdmitter{err: admitErr}
			ing := newTestIngress(t, admitter, nil)

			msg := message.NewMessage("1", []byte(`{"topic":"t","event_id":"e","timestamp":"x","source":"s"}`))
			err := ing.Handle(msg)
			if !errors.Is(err, admitErr) {
				t.Errorf("Handle() error = %v, want %v (nack)", err, admitErr)
			}
			if len(admitter.rejected) != 0 {
				t.Errorf("backpressure must not count as invalid, rejected = %v", admitter.rejected)
			}
		})
	}
}

func TestIngress_RunAdmitsIntoQueue(t *testing.T) {
	queue := pipeline.NewQueue(16)
	counters := pipeline.NewCounters()
	admitter := pipeline.NewAdmitter(queue, counters)

	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	factory := func() (message.Subscriber, error) { return pubSub, nil }
	ing := newTestIngress(t, admitter, factory)

	subject := testIngressConfig().Subject
	for _, id := range []string{"a", "b"} {
		msg, err := EventMessage(testEvent("app.logs", id))
		if err != nil {
			t.Fatalf("EventMessage() error = %v", err)
		}
		if err := pubSub.Publish(subject, msg); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	if err := pubSub.Publish(subject, message.NewMessage("bad", []byte("not json"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ing.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for queue.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if queue.Len() != 2 {
		cancel()
		t.Fatalf("queue length = %d, want 2", queue.Len())
	}
	if got := counters.Snapshot().Received; got != 2 {
		t.Errorf("received = %d, want 2", got)
	}
	if !ing.Running() {
		t.Error("Running() = false while Run is active")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestIngress_RunSubscriberError(t *testing.T) {
	openErr := errors.New("connection refused")
	ing := newTestIngress(t, &fakeAdmitter{}, func() (message.Subscriber, error) { return nil, openErr })

	if err := ing.Run(context.Background()); !errors.Is(err, openErr) {
		t.Errorf("Run() error = %v, want subscriber error", err)
	}
}
