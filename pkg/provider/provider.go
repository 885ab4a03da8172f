// Package provider defines the outbound messaging provider contract and the
// webhook event model echoed back by the provider.
package provider

import (
	"context"
	"time"
)

// MessageType distinguishes text-only from media test messages. The two have
// different delivery-confirmation SLAs, so timeouts key off this value.
type MessageType string

const (
	// TypeSMS is a text-only message.
	TypeSMS MessageType = "sms"
	// TypeMMS is a media message.
	TypeMMS MessageType = "mms"
)

// Valid reports whether the message type is one smsprobe understands.
func (t MessageType) Valid() bool {
	return t == TypeSMS || t == TypeMMS
}

// SendRequest carries one outbound test message.
type SendRequest struct {
	From          string   `json:"from"`
	To            string   `json:"to"`
	Body          string   `json:"text"`
	MediaURLs     []string `json:"media,omitempty"`
	ApplicationID string   `json:"applicationId"`
	// Tag is the correlation key; the provider echoes it on every webhook
	// event for this message.
	Tag string `json:"tag"`
}

// SendResponse is the provider's synchronous acceptance of a send.
type SendResponse struct {
	MessageID  string    `json:"message_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Provider is the outbound messaging collaborator.
type Provider interface {
	// Name returns the provider name.
	Name() string
	// Send submits one message. A nil error means the provider accepted the
	// message for delivery; delivery itself is confirmed later via webhook.
	Send(ctx context.Context, req *SendRequest) (*SendResponse, error)
	// IsHealthy checks whether the provider is reachable and configured.
	IsHealthy(ctx context.Context) error
	// Close releases provider resources.
	Close() error
}

// Webhook event types delivered by the provider.
const (
	// EventMessageSending means the carrier accepted the message (leg 1).
	EventMessageSending = "message-sending"
	// EventMessageDelivered means the handset confirmed delivery (leg 2).
	EventMessageDelivered = "message-delivered"
	// EventMessageFailed means delivery failed.
	EventMessageFailed = "message-failed"
)

// Event is one lifecycle event from the provider's webhook payload.
type Event struct {
	Type        string       `json:"type"`
	Time        time.Time    `json:"time,omitempty"`
	Description string       `json:"description,omitempty"`
	ErrorCode   int          `json:"errorCode,omitempty"`
	Message     EventMessage `json:"message"`
}

// EventMessage is the nested message object carrying the correlation tag.
type EventMessage struct {
	ID   string   `json:"id"`
	Tag  string   `json:"tag,omitempty"`
	From string   `json:"from,omitempty"`
	To   []string `json:"to,omitempty"`
}

// Tag returns the correlation tag for the event, or empty when absent.
func (e *Event) CorrelationTag() string {
	return e.Message.Tag
}
