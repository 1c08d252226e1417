// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

type mockRunner struct {
	run func(ctx context.Context) error
}

func (m *mockRunner) Run(ctx context.Context) error { return m.run(ctx) }

func (m *mockRunner) RunWithContext(ctx context.Context) error { return m.run(ctx) }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestConsumerService_Interface(t *testing.T) {
	var _ suture.Service = (*ConsumerService)(nil)
}

func TestConsumerService_Serve(t *testing.T) {
	tests := []struct {
		name    string
		run     func(ctx context.Context) error
		cancel  bool
		wantErr error
	}{
		{"shutdown", blockUntilDone, true, context.Canceled},
		{"exited early", func(context.Context) error { return nil }, false, suture.ErrDoNotRestart},
		{"already stopped", func(context.Context) error { return pipeline.ErrStopped }, false, suture.ErrDoNotRestart},
		{"already running", func(context.Context) error { return pipeline.ErrAlreadyRunning }, false, suture.ErrDoNotRestart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewConsumerService(&mockRunner{run: tt.run})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				time.AfterFunc(10*time.Millisecond, cancel)
			}

			if err := svc.Serve(ctx); !errors.Is(err, tt.wantErr) {
				t.Errorf("Serve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConsumerService_PropagatesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := NewConsumerService(&mockRunner{run: func(context.Context) error { return boom }})

	if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Serve() error = %v, want boom", err)
	}
	if svc.String() != "consumer" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestIngressService_Serve(t *testing.T) {
	t.Run("shutdown", func(t *testing.T) {
		svc := NewIngressService(&mockRunner{run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}})
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	})

	t.Run("failure is restartable", func(t *testing.T) {
		connErr := errors.New("nats: no servers available")
		svc := NewIngressService(&mockRunner{run: func(context.Context) error { return connErr }})

		err := svc.Serve(context.Background())
		if !errors.Is(err, connErr) {
			t.Errorf("Serve() error = %v, want wrapped connection error", err)
		}
		if errors.Is(err, suture.ErrDoNotRestart) {
			t.Error("ingress failures must stay restartable")
		}
	})

	t.Run("unexpected exit", func(t *testing.T) {
		svc := NewIngressService(&mockRunner{run: func(context.Context) error { return nil }})
		if err := svc.Serve(context.Background()); err == nil {
			t.Error("Serve() should report an unexpected exit")
		}
	})
}

func TestHubService_Delegates(t *testing.T) {
	called := make(chan struct{})
	svc := NewHubService(&mockRunner{run: func(ctx context.Context) error {
		close(called)
		<-ctx.Done()
		return ctx.Err()
	}})
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-called
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}
