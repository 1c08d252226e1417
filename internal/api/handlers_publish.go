// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aggregator/internal/logging"
	"github.com/tomtom215/aggregator/internal/models"
	"github.com/tomtom215/aggregator/internal/pipeline"
)

// errNotABatch is reported for bodies that are neither an object nor a
// non-empty array.
var errNotABatch = errors.New("body must be an event object or a non-empty array of events")

// publishRejectedResponse is the 503 body when admission stopped mid-batch.
type publishRejectedResponse struct {
	models.PublishResponse
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// Publish admits one event or a batch of events.
//
// @Summary Publish events
// @Description Validates and admits one event object or a non-empty array of events. Invalid items are reported by index and do not fail the batch.
// @Tags Ingestion
// @Accept json
// @Produce json
// @Param events body []models.Event true "Event object or array of events"
// @Success 200 {object} models.PublishResponse "Batch processed"
// @Failure 400 {object} ErrorResponse "Body is not an event object or array"
// @Failure 413 {object} ErrorResponse "Body too large"
// @Failure 503 {object} models.PublishResponse "Queue full or shutting down; retry from rejected_from"
// @Router /publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return
		}
		rw.BadRequest("failed to read request body")
		return
	}

	items, err := splitBatch(body)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	resp := models.PublishResponse{Errors: []models.ItemError{}}
	var admitErr error

	for i, raw := range items {
		evt, err := pipeline.DecodeEvent(raw)
		if err != nil {
			h.admitter.Reject(pipeline.SourceHTTP)
			resp.Errors = append(resp.Errors, models.ItemError{Index: i, Error: err.Error()})
			continue
		}

		if err := h.admitter.Admit(pipeline.SourceHTTP, evt); err != nil {
			rejectedFrom := i
			resp.RejectedFrom = &rejectedFrom
			admitErr = err
			break
		}
		resp.Accepted++
	}

	logger := logging.Ctx(r.Context())
	if admitErr != nil {
		logger.Warn().
			Err(admitErr).
			Int("items", len(items)).
			Int("accepted", resp.Accepted).
			Int("rejected_from", *resp.RejectedFrom).
			Msg("Publish batch stopped at admission")

		rw.setRetryAfter(1)
		rw.JSON(http.StatusServiceUnavailable, publishRejectedResponse{
			PublishResponse: resp,
			Error:           rw.errorEnvelope(ErrCodeServiceUnavailable, admissionMessage(admitErr), nil).Error,
		})
		return
	}

	logger.Debug().
		Int("items", len(items)).
		Int("accepted", resp.Accepted).
		Int("invalid", len(resp.Errors)).
		Msg("Publish batch admitted")

	rw.OK(resp)
}

func admissionMessage(err error) string {
	if errors.Is(err, pipeline.ErrQueueClosed) {
		return "server is shutting down; retry later"
	}
	return "queue is full; retry later"
}

// splitBatch returns the raw items of a single object or a non-empty array.
func splitBatch(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errNotABatch
	}

	switch body[0] {
	case '{':
		return []json.RawMessage{body}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, errNotABatch
		}
		if len(items) == 0 {
			return nil, errNotABatch
		}
		return items, nil
	default:
		return nil, errNotABatch
	}
}
