package domain

import (
	"context"
	"time"
)

// ActionTopic carries companion action events from directive execution to
// the session transport; the routing key is the session ID.
const ActionTopic = "companion.actions"

// EventBroker defines the interface for in-process event delivery between
// the companion core and the transports.
type EventBroker interface {
	// Publish sends a payload to a specific topic with a routing key
	Publish(ctx context.Context, topic string, routingKey string, payload []byte) error

	// Subscribe listens for events on a specific topic and routing key
	Subscribe(ctx context.Context, topic string, routingKey string) (<-chan Event, error)

	// Close closes the broker
	Close() error
}

// Event represents an event received from the broker
type Event struct {
	Topic      string
	RoutingKey string
	Payload    []byte
	Timestamp  time.Time
}

// ActionEvent is the payload published when an assistant directive fires:
// the client-side effect the page should perform.
type ActionEvent struct {
	SessionID string       `json:"session_id"`
	Type      string       `json:"type"`
	Path      string       `json:"path,omitempty"`
	URL       string       `json:"url,omitempty"`
	Lead      *LeadContext `json:"lead,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

const (
	ActionNavigate        = "navigate"
	ActionOpenWhatsApp    = "open_whatsapp"
	ActionShowConnectForm = "show_connect_form"
)
