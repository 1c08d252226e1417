// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package pipeline

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aggregator/internal/metrics"
	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/validation"
)

// Admission sources, used as the source label on admission metrics.
const (
	SourceHTTP = "http"
	SourceNATS = "nats"
)

// Rejection reasons recorded at admission.
const (
	RejectInvalid     = "invalid"
	RejectQueueFull   = "queue_full"
	RejectQueueClosed = "queue_closed"
)

// InvalidEventError describes an event refused before admission.
type InvalidEventError struct {
	Reason string
	Fields []validation.FieldError
}

func (e *InvalidEventError) Error() string { return e.Reason }

// DecodeEvent parses one event JSON object and validates it. The returned
// event is normalized. Every failure is an *InvalidEventError.
func DecodeEvent(raw []byte) (*models.Event, error) {
	var evt models.Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, &InvalidEventError{Reason: decodeReason(err)}
	}
	if evt.Timestamp == "" && !hasTimestamp(raw) {
		invalid := &InvalidEventError{
			Reason: missingTimestamp.Message,
			Fields: []validation.FieldError{missingTimestamp},
		}
		if verr := validation.ValidateStruct(&evt); verr != nil {
			invalid.Reason = verr.Error() + "; " + missingTimestamp.Message
			invalid.Fields = append(verr.Fields(), missingTimestamp)
		}
		return nil, invalid
	}
	if err := ValidateEvent(&evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

var missingTimestamp = validation.FieldError{
	Field:   "timestamp",
	Tag:     "required",
	Message: "timestamp is required",
}

// hasTimestamp reports whether the event object carries a non-null
// timestamp. The empty string counts as present.
func hasTimestamp(raw []byte) bool {
	var probe struct {
		Timestamp *string `json:"timestamp"`
	}
	return json.Unmarshal(raw, &probe) == nil && probe.Timestamp != nil
}

// ValidateEvent applies the event rules and normalizes evt in place.
func ValidateEvent(evt *models.Event) error {
	if verr := validation.ValidateStruct(evt); verr != nil {
		return &InvalidEventError{Reason: verr.Error(), Fields: verr.Fields()}
	}
	evt.Normalize()
	return nil
}

func decodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Type == nil {
		return "malformed event JSON"
	}
	switch {
	case typeErr.Type == eventType:
		return "event must be a JSON object"
	case typeErr.Field != "":
		return fmt.Sprintf("%s must be %s", typeErr.Field, jsonKind(typeErr.Type))
	default:
		return fmt.Sprintf("expected %s, got %s", jsonKind(typeErr.Type), typeErr.Value)
	}
}

var eventType = reflect.TypeOf(models.Event{})

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Map:
		return "an object"
	default:
		return t.String()
	}
}

// Admitter enqueues validated events and keeps the received counter.
// received is incremented only after a successful enqueue.
type Admitter struct {
	queue    *Queue
	counters *Counters
}

// NewAdmitter creates an Admitter feeding queue.
func NewAdmitter(queue *Queue, counters *Counters) *Admitter {
	return &Admitter{queue: queue, counters: counters}
}

// Admit enqueues evt. It returns ErrQueueFull or ErrQueueClosed when the
// event was not admitted.
func (a *Admitter) Admit(source string, evt *models.Event) error {
	if err := a.queue.Enqueue(evt); err != nil {
		reason := RejectQueueFull
		if errors.Is(err, ErrQueueClosed) {
			reason = RejectQueueClosed
		}
		metrics.RecordAdmissionRejected(source, reason)
		return err
	}
	a.counters.RecordReceived()
	metrics.RecordReceived(source)
	return nil
}

// Reject records an invalid event from source.
func (a *Admitter) Reject(source string) {
	metrics.RecordAdmissionRejected(source, RejectInvalid)
}
