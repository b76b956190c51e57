// Package queue carries jobs from the submission side to the workers. It
// holds the message codec, an SQS-backed producer, an in-process dispatcher
// with per-kind worker pools, and the health guard that protects submitters
// when the backend is down.
package queue

import "encoding/json"

// Kind selects which worker pool handles a message.
type Kind string

const (
	KindIngest        Kind = "ingest"
	KindCustomization Kind = "customization"
	KindMessage       Kind = "message"
)

// Valid reports whether k is a known job kind.
func (k Kind) Valid() bool {
	switch k {
	case KindIngest, KindCustomization, KindMessage:
		return true
	}
	return false
}

// Message is the payload delivered to queue consumers. IdempotencyKey is
// caller-supplied and keys the terminal state the worker writes; fields
// beyond it are populated per kind.
type Message struct {
	Kind           Kind   `json:"kind"`
	IdempotencyKey string `json:"idempotencyKey"`
	RequestID      string `json:"requestId"`
	DocumentID     string `json:"documentId"`
	SourceLocator  string `json:"sourceLocator,omitempty"`
	FileName       string `json:"fileName,omitempty"`
	VersionKey     string `json:"versionKey,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
	SourceText     string `json:"sourceText,omitempty"`
	EnqueuedAt     string `json:"enqueuedAt"`
	Version        int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
