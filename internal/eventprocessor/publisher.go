// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package eventprocessor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/aggregator/internal/metrics"
	"github.com/tomtom215/aggregator/internal/models"
)

// MessagePublisher is the subset of message.Publisher used by Publisher.
type MessagePublisher interface {
	Publish(topic string, messages ...*message.Message) error
	Close() error
}

// Publisher publishes events to JetStream through Watermill. The
// Nats-Msg-Id header carries the event identity so JetStream drops
// redeliveries inside the stream's duplicate window.
type Publisher struct {
	publisher      MessagePublisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher connects a Watermill JetStream publisher.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: publisher URL required", ErrInvalidConfig)
	}
	logger = loggerOrDefault(logger)

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: connectionOptions(cfg.MaxReconnects, cfg.ReconnectWait, cfg.ReconnectBuffer, logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return newPublisher(pub, logger), nil
}

func newPublisher(pub MessagePublisher, logger watermill.LoggerAdapter) *Publisher {
	return &Publisher{publisher: pub, logger: loggerOrDefault(logger)}
}

// connectionOptions are shared by the publisher and subscriber.
func connectionOptions(maxReconnects int, reconnectWait time.Duration, reconnectBuf int, logger watermill.LoggerAdapter) []natsgo.Option {
	opts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	if reconnectBuf > 0 {
		opts = append(opts, natsgo.ReconnectBufSize(reconnectBuf))
	}
	return opts
}

// SetCircuitBreaker guards every publish with cb.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish sends msg on subject.
func (p *Publisher) Publish(_ context.Context, subject string, msg *message.Message) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(subject, msg)
		})
	} else {
		err = p.publisher.Publish(subject, msg)
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	metrics.RecordNATSPublish()
	return nil
}

// PublishEvent encodes evt and publishes it on prefix.<topic>.
func (p *Publisher) PublishEvent(ctx context.Context, prefix string, evt *models.Event) error {
	msg, err := EventMessage(evt)
	if err != nil {
		return err
	}
	return p.Publish(ctx, SubjectFor(prefix, evt.Topic), msg)
}

// messageIDSpace is the name-based UUID namespace for event message ids.
var messageIDSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("aggregator.event"))

// MessageID derives the JetStream message id of the event (topic, eventID).
// The topic is length-prefixed, so distinct pairs never share an id even
// when their joined text is equal.
func MessageID(topic, eventID string) string {
	b := make([]byte, 0, 21+len(topic)+len(eventID))
	b = strconv.AppendInt(b, int64(len(topic)), 10)
	b = append(b, ':')
	b = append(b, topic...)
	b = append(b, eventID...)
	return uuid.NewSHA1(messageIDSpace, b).String()
}

// EventMessage builds the Watermill message for evt. MessageID is both the
// message UUID and the JetStream message id, so TrackMsgId and the explicit
// header agree.
func EventMessage(evt *models.Event) (*message.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", evt.Identity(), err)
	}
	id := MessageID(evt.Topic, evt.EventID)
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(natsgo.MsgIdHdr, id)
	msg.Metadata.Set("source", evt.Source)
	return msg, nil
}

// SubjectFor maps a topic onto a NATS subject under prefix. Characters
// that are not valid in a subject token are replaced with '_' and empty
// tokens ("a..b", leading or trailing dots) are dropped.
func SubjectFor(prefix, topic string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '*', '>':
			return '_'
		}
		return r
	}, topic)
	token = strings.Join(strings.FieldsFunc(token, func(r rune) bool { return r == '.' }), ".")
	if token == "" {
		token = "_"
	}
	if prefix == "" {
		return token
	}
	return strings.TrimSuffix(prefix, ".") + "." + token
}

// Close closes the underlying publisher. Calling it twice is a no-op.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
