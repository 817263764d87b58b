// Package model defines the wire shapes shared by every tier.
package model

import (
	"encoding/json"
	"time"
)

// Envelope is the response body every endpoint returns.
type Envelope map[string]any

// NewEnvelope starts an envelope tagged with the producing service.
func NewEnvelope(service string) Envelope {
	return Envelope{"service": service}
}

// Set assigns a field and returns the envelope for chaining.
func (e Envelope) Set(key string, value any) Envelope {
	e[key] = value
	return e
}

// Merge copies every field in fields into the envelope.
func (e Envelope) Merge(fields map[string]any) Envelope {
	for k, v := range fields {
		e[k] = v
	}
	return e
}

// Nest embeds a downstream body under key without decoding it.
func (e Envelope) Nest(key string, body json.RawMessage) Envelope {
	e[key] = body
	return e
}

// Stamp records the construction time and must be the last mutation.
func (e Envelope) Stamp() Envelope {
	e["timestamp"] = time.Now().UnixMilli()
	return e
}

// Service returns the producing service name, if present.
func (e Envelope) Service() string {
	s, _ := e["service"].(string)
	return s
}

// Millis converts a duration to whole milliseconds for envelope fields.
func Millis(d time.Duration) int64 {
	return d.Milliseconds()
}
