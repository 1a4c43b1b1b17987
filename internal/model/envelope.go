package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedEnvelope is returned when an inbound frame is not a valid envelope.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Well-known topics pushed by the server.
const (
	TopicClientUpdate      = "client_update"
	TopicTransactionUpdate = "transaction_update"
	TopicAlertUpdate       = "alert_update"
	TopicReportUpdate      = "report_update"
	TopicSystemEvent       = "system_event"
)

// KnownTopics lists the topics consumed by the notification mapper.
var KnownTopics = []string{
	TopicClientUpdate,
	TopicTransactionUpdate,
	TopicAlertUpdate,
	TopicReportUpdate,
	TopicSystemEvent,
}

// Envelope is the {type, data, timestamp} structure of one inbound or outbound message.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"` // ISO-8601, server assigned
}

// Topic returns the routing key of the envelope.
func (e Envelope) Topic() string {
	return e.Type
}

// DecodeEnvelope parses a raw frame. The type and timestamp fields are required;
// a missing data field decodes as an empty object.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	if env.Timestamp == "" {
		return Envelope{}, fmt.Errorf("%w: missing timestamp", ErrMalformedEnvelope)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		env.Data = json.RawMessage("{}")
	}
	return env, nil
}

// EncodeEnvelope serializes an envelope for the wire.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("{}")
	}
	return json.Marshal(env)
}

// NewEnvelope builds an envelope from any JSON-serializable payload.
func NewEnvelope(topic string, payload any, timestamp string) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Envelope{Type: topic, Data: data, Timestamp: timestamp}, nil
}
