package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels consumed by the out-of-scope notification collaborator.
const (
	ChannelAppointmentCreated = "appointment.created"
	ChannelAppointmentStatus  = "appointment.status_changed"
	ChannelCrisisCreated      = "crisis.created"
	ChannelCrisisBreached     = "crisis.sla_breached"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
