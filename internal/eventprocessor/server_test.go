// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/aggregator/internal/pipeline"
)

func startEmbeddedServer(t *testing.T) *EmbeddedServer {
	t.Helper()
	srv, err := NewEmbeddedServer(&ServerConfig{
		Host:              "127.0.0.1",
		Port:              -1,
		StoreDir:          t.TempDir(),
		JetStreamMaxMem:   16 << 20,
		JetStreamMaxStore: 64 << 20,
	})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestEmbeddedServer_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv := startEmbeddedServer(t)
	if !srv.IsRunning() {
		t.Error("IsRunning() = false after start")
	}
	if !srv.JetStreamEnabled() {
		t.Error("JetStreamEnabled() = false")
	}
	if srv.ClientURL() == "" {
		t.Error("ClientURL() is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after Shutdown")
	}
}

func TestStreamManager_EnsureStreamIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	srv := startEmbeddedServer(t)
	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream.New() error = %v", err)
	}

	cfg := testNATSConfig()
	streamCfg := StreamConfigFrom(&cfg)
	mgr, err := NewStreamManager(js, &streamCfg)
	if err != nil {
		t.Fatalf("NewStreamManager() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 2; i++ {
		if _, err := mgr.EnsureStream(ctx); err != nil {
			t.Fatalf("EnsureStream() call %d error = %v", i+1, err)
		}
	}

	info, err := mgr.GetStreamInfo(ctx)
	if err != nil {
		t.Fatalf("GetStreamInfo() error = %v", err)
	}
	if info.Config.Duplicates != 2*time.Minute {
		t.Errorf("duplicate window = %v, want 2m", info.Config.Duplicates)
	}
	if info.Config.Storage != jetstream.FileStorage {
		t.Errorf("storage = %v, want file", info.Config.Storage)
	}

	// Same message id inside the window is stored once; pairs whose joined
	// text collides still get distinct ids.
	for _, p := range [][2]string{{"app.logs", "e1"}, {"app.logs", "e1"}, {"app/logs", "1"}, {"app", "logs/1"}} {
		msg := natsgo.NewMsg("events.app.logs")
		msg.Header.Set(natsgo.MsgIdHdr, MessageID(p[0], p[1]))
		msg.Data = []byte(`{}`)
		if _, err := js.PublishMsg(ctx, msg); err != nil {
			t.Fatalf("PublishMsg() error = %v", err)
		}
	}
	info, err = mgr.GetStreamInfo(ctx)
	if err != nil {
		t.Fatalf("GetStreamInfo() error = %v", err)
	}
	if info.State.Msgs != 3 {
		t.Errorf("stream holds %d messages, want 3", info.State.Msgs)
	}
}

func TestNewStreamManager_Validation(t *testing.T) {
	cfg := testNATSConfig()
	streamCfg := StreamConfigFrom(&cfg)

	if _, err := NewStreamManager(nil, &streamCfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil JetStream error = %v, want ErrInvalidConfig", err)
	}

	bad := streamCfg
	bad.Name = ""
	if _, err := NewStreamManager(nopJetStream{}, &bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("invalid config error = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewStreamManager(nopJetStream{}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil config error = %v, want ErrInvalidConfig", err)
	}
}

func TestStart_EmbeddedRuntime(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS test in short mode")
	}

	cfg := testNATSConfig()
	cfg.Port = -1
	cfg.StoreDir = t.TempDir()

	queue := pipeline.NewQueue(8)
	admitter := pipeline.NewAdmitter(queue, pipeline.NewCounters())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rt, err := Start(ctx, &cfg, admitter)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer rt.Close(context.Background())

	if rt.Server == nil || rt.Ingress == nil {
		t.Fatal("Start() should return an embedded server and an ingress")
	}
	if rt.URL != rt.Server.ClientURL() {
		t.Errorf("URL = %q, want embedded client URL %q", rt.URL, rt.Server.ClientURL())
	}
}

type nopJetStream struct{}

func (nopJetStream) Stream(context.Context, string) (jetstream.Stream, error) {
	return nil, jetstream.ErrStreamNotFound
}

func (nopJetStream) CreateStream(context.Context, jetstream.StreamConfig) (jetstream.Stream, error) {
	return nil, nil
}

func (nopJetStream) UpdateStream(context.Context, jetstream.StreamConfig) (jetstream.Stream, error) {
	return nil, nil
}
