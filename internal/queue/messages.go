// Package queue defines the wire envelope bank messages travel in
// across the Redis streams connecting the engine with the API process
// and the dealer process.
package queue

import (
	"encoding/json"
	"fmt"
)

// Envelope wraps one bank message for transport: Kind names the Go
// type on the other side (e.g. "InvoiceRequest"), and Payload is that
// message JSON-encoded. The dispatcher never sees an Envelope itself —
// the transport layer decodes Payload into the matching bank.* struct
// before calling Engine.Dispatch.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals msg into an Envelope tagged with kind.
func NewEnvelope(kind string, msg any) (Envelope, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return Envelope{Kind: kind, Payload: data}, nil
}

// ToJSON serializes the envelope to JSON bytes for XAdd.
func (e Envelope) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// FromJSON deserializes JSON bytes read off a stream into an Envelope.
func FromJSON(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if e.Kind == "" {
		return Envelope{}, fmt.Errorf("envelope missing kind")
	}
	return e, nil
}

// Decode unmarshals the envelope's payload into out, which must be a
// pointer to the concrete bank.* type Kind names.
func (e Envelope) Decode(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Kind, err)
	}
	return nil
}
