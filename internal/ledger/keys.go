// Aggregator - Idempotent Event Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aggregator

package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	prefixClaim      byte = 'c'
	prefixEvent      byte = 'e'
	prefixProcessed  byte = 'p'
	prefixTopicIndex byte = 't'
)

var errMalformedKey = errors.New("ledger: malformed key")

// ErrTopicTooLong is returned for topics whose length does not fit the
// two-byte length prefix of a key.
var ErrTopicTooLong = errors.New("ledger: topic too long")

func checkTopic(topic string) error {
	if len(topic) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes, max %d", ErrTopicTooLong, len(topic), math.MaxUint16)
	}
	return nil
}

// identity encodes (topic, eventID) unambiguously. Callers must have
// passed topic through checkTopic.
func identity(topic, eventID string) []byte {
	b := make([]byte, 0, 2+len(topic)+len(eventID))
	b = binary.BigEndian.AppendUint16(b, uint16(len(topic)))
	b = append(b, topic...)
	return append(b, eventID...)
}

func parseIdentity(b []byte) (topic, eventID string, err error) {
	if len(b) < 2 {
		return "", "", errMalformedKey
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return "", "", errMalformedKey
	}
	return string(b[2 : 2+n]), string(b[2+n:]), nil
}

func claimKey(topic, eventID string) []byte {
	return append([]byte{prefixClaim}, identity(topic, eventID)...)
}

func eventKey(topic, eventID string) []byte {
	return append([]byte{prefixEvent}, identity(topic, eventID)...)
}

func processedKey(nanos int64, topic, eventID string) []byte {
	b := make([]byte, 0, 1+8+2+len(topic)+len(eventID))
	b = append(b, prefixProcessed)
	b = binary.BigEndian.AppendUint64(b, uint64(nanos))
	return append(b, identity(topic, eventID)...)
}

// topicPrefix is the per-topic index prefix for topic.
func topicPrefix(topic string) []byte {
	b := make([]byte, 0, 1+2+len(topic))
	b = append(b, prefixTopicIndex)
	b = binary.BigEndian.AppendUint16(b, uint16(len(topic)))
	return append(b, topic...)
}

func topicIndexKey(nanos int64, topic, eventID string) []byte {
	b := topicPrefix(topic)
	b = binary.BigEndian.AppendUint64(b, uint64(nanos))
	return append(b, eventID...)
}

// identityFromProcessedKey extracts (topic, eventID) from a 'p' index key.
func identityFromProcessedKey(key []byte) (topic, eventID string, err error) {
	if len(key) < 1+8 || key[0] != prefixProcessed {
		return "", "", errMalformedKey
	}
	return parseIdentity(key[9:])
}

// eventIDFromTopicKey extracts the event id from a 't' index key of topic.
func eventIDFromTopicKey(key []byte, topic string) (string, error) {
	n := 1 + 2 + len(topic) + 8
	if len(key) < n || key[0] != prefixTopicIndex {
		return "", errMalformedKey
	}
	return string(key[n:]), nil
}

func encodeNanos(nanos int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(nanos))
}
