// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tomtom215/aggregator/internal/models"
)

// generator produces simulated events. With probability dupRatio an event
// takes the id of a random earlier index in [0, idx/2].
type generator struct {
	topic    string
	source   string
	dupRatio float64
	rnd      *rand.Rand
	now      func() time.Time
	next     int
}

func newGenerator(topic, source string, dupRatio float64, seed int64) *generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &generator{
		topic:    topic,
		source:   source,
		dupRatio: dupRatio,
		rnd:      rand.New(rand.NewSource(seed)), //nolint:gosec // simulation, not security
		now:      time.Now,
	}
}

// Next returns the event for the next index.
func (g *generator) Next() models.Event {
	idx := g.next
	g.next++

	id := fmt.Sprintf("%s-%d", g.source, idx)
	if g.rnd.Float64() < g.dupRatio {
		id = fmt.Sprintf("%s-%d", g.source, g.rnd.Intn(idx/2+1))
	}

	return models.Event{
		Topic:     g.topic,
		EventID:   id,
		Timestamp: g.now().UTC().Format(time.RFC3339),
		Source:    g.source,
		Payload: map[string]interface{}{
			"i":   idx,
			"msg": "simulated",
		},
	}
}

// Batch returns the next n events.
func (g *generator) Batch(n int) []models.Event {
	batch := make([]models.Event, n)
	for i := range batch {
		batch[i] = g.Next()
	}
	return batch
}
