/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus to NATS so that
// multiple FreshNest instances see each other's schedule changes.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/freshnest/freshnest/internal/events"
)

const subjectPrefix = "freshnest.events."

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// busMessage is the wire format published to NATS.
type busMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// NATSBridge mirrors local events to NATS and replays remote events
// onto the local bus. If the connection fails the local bus keeps
// working on its own.
type NATSBridge struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	local  *events.Bus
	logger zerolog.Logger
	nodeID string
}

// NewNATSBridge connects to NATS and starts mirroring events.
func NewNATSBridge(cfg NATSConfig, local *events.Bus, logger zerolog.Logger) (*NATSBridge, error) {
	nodeID := generateNodeID()
	log := logger.With().Str("component", "eventbus").Str("node_id", nodeID).Logger()

	conn, err := nats.Connect(cfg.URL,
		nats.Name("freshnest"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}

	bridge := &NATSBridge{
		conn:   conn,
		local:  local,
		logger: log,
		nodeID: nodeID,
	}

	sub, err := conn.Subscribe(subjectPrefix+">", bridge.handleRemote)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to %s>: %w", subjectPrefix, err)
	}
	bridge.sub = sub

	log.Info().Str("url", cfg.URL).Msg("NATS event bridge connected")
	return bridge, nil
}

// Publish delivers the event locally and mirrors it to NATS.
func (b *NATSBridge) Publish(eventType events.EventType, payload events.Payload) {
	b.local.Publish(eventType, payload)

	msg := busMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    b.nodeID,
		MessageID: uuid.NewString(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("marshal event")
		return
	}

	if err := b.conn.Publish(subjectPrefix+string(eventType), data); err != nil {
		b.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("publish event to NATS")
	}
}

// handleRemote replays events from other nodes onto the local bus.
func (b *NATSBridge) handleRemote(m *nats.Msg) {
	var msg busMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		b.logger.Debug().Err(err).Str("subject", m.Subject).Msg("drop malformed event")
		return
	}

	// Ignore our own echoes.
	if msg.NodeID == b.nodeID {
		return
	}

	b.local.Publish(msg.EventType, msg.Payload)
}

// Close drains the subscription and closes the connection.
func (b *NATSBridge) Close() error {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			b.logger.Debug().Err(err).Msg("unsubscribe")
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	short := strings.Split(uuid.NewString(), "-")[0]
	return host + "-" + short
}
