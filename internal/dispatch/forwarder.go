// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/gatekeeper/internal/breaker"
	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/metrics"
	"github.com/tomtom215/gatekeeper/internal/models"
)

// ErrHubClosed is returned by Forwarder.Serve when the hub shuts down first.
var ErrHubClosed = errors.New("dispatch hub closed")

// Metadata keys set on forwarded messages.
const (
	MetadataPrincipal = "principal"
	MetadataOutcome   = "outcome"
)

// Forwarder republishes every decided attempt to a Watermill topic. It is a
// wildcard subscriber of the hub, so a slow bus drops events instead of
// delaying other observers.
type Forwarder struct {
	hub       *Hub
	publisher message.Publisher
	topic     string
	cb        *breaker.Breaker[struct{}]
}

// NewForwarder creates a forwarder from hub to topic on publisher.
func NewForwarder(hub *Hub, publisher message.Publisher, topic string) *Forwarder {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Forwarder{
		hub:       hub,
		publisher: publisher,
		topic:     topic,
		cb:        breaker.New[struct{}](breaker.DefaultConfig("bus-publisher")),
	}
}

// Serve forwards events until ctx is canceled. It implements suture.Service.
func (f *Forwarder) Serve(ctx context.Context) error {
	sub := f.hub.Subscribe(AllPrincipals())
	defer sub.Close()

	logging.Info().Str("topic", f.topic).Msg("Bus forwarder started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrHubClosed
			}
			if err := f.forward(entry); err != nil {
				logging.Warn().Err(err).Str("attempt_id", entry.AttemptID).Msg("Failed to forward decision to bus")
			}
		}
	}
}

func (f *Forwarder) forward(entry models.AuditEntry) error {
	msg, err := NewDecisionMessage(entry)
	if err != nil {
		return err
	}

	_, err = f.cb.Execute(func() (struct{}, error) {
		return struct{}{}, f.publisher.Publish(f.topic, msg)
	})
	metrics.RecordBusPublish(err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", f.topic, err)
	}
	return nil
}

// NewDecisionMessage encodes entry as a Watermill message. The attempt ID is
// both the message UUID and the NATS dedup ID, so a replayed attempt is
// collapsed by JetStream.
func NewDecisionMessage(entry models.AuditEntry) (*message.Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal decision event: %w", err)
	}

	msg := message.NewMessage(entry.AttemptID, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, entry.AttemptID)
	msg.Metadata.Set(MetadataPrincipal, entry.Principal)
	msg.Metadata.Set(MetadataOutcome, string(entry.Decision.Outcome))
	return msg, nil
}

// DecodeDecisionMessage is the inverse of NewDecisionMessage.
func DecodeDecisionMessage(msg *message.Message) (models.AuditEntry, error) {
	var entry models.AuditEntry
	if err := json.Unmarshal(msg.Payload, &entry); err != nil {
		return entry, fmt.Errorf("unmarshal decision event: %w", err)
	}
	return entry, nil
}
