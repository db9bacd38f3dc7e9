// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package event publishes domain events onto a Redis-backed task queue.

Every security-relevant state change (login, logout, session eviction,
account lifecycle) is announced so downstream consumers can react:
audit trails, notification fan-out, analytics.

Delivery Semantics:

  - Fire-and-forget: auth flows never fail because the queue is down.
  - At-least-once: consumers must tolerate duplicate events.
  - Ordered per entity only by timestamp, not by queue position.
*/
package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Event type names used as task types on the queue. Consumers register
// handlers per type, mirroring routing-key dispatch.
const (
	TypeUserLoggedIn   = "sso:user.logged_in"
	TypeUserLoggedOut  = "sso:user.logged_out"
	TypeSessionCreated = "sso:session.created"
	TypeSessionRevoked = "sso:session.revoked"
	TypeUserCreated    = "sso:user.created"
	TypeUserUpdated    = "sso:user.updated"
	TypeUserDeleted    = "sso:user.deleted"
)

// queueName isolates SSO events from any other workload sharing the
// same Redis instance.
const queueName = "sso_events"

// envelopeVersion is bumped only on breaking payload changes.
const envelopeVersion = 1

// Envelope is the wire format shared by every published event.
type Envelope struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	EntityID  string         `json:"entity_id"`
	Timestamp string         `json:"timestamp"`
	Version   int            `json:"version"`
	Source    string         `json:"source"`
	Data      map[string]any `json:"data"`
}

// Publisher enqueues domain events. Safe for concurrent use.
type Publisher struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewPublisher connects the queue client to the given Redis URL.
func NewPublisher(redisURL string, logger *slog.Logger) (*Publisher, error) {
	connOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		client: asynq.NewClient(connOpt),
		logger: logger,
	}, nil
}

// Publish enqueues a single event. Errors are logged and swallowed;
// callers must not branch on publication success.
func (publisher *Publisher) Publish(ctx context.Context, eventType string, entityID string, data map[string]any) {
	envelope := Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		EntityID:  entityID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   envelopeVersion,
		Source:    "sso",
		Data:      data,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		publisher.logger.ErrorContext(ctx, "event_marshal_failed",
			slog.String("event_type", eventType),
			slog.Any("error", err),
		)
		return
	}

	task := asynq.NewTask(eventType, payload)

	if _, err := publisher.client.EnqueueContext(ctx, task,
		asynq.Queue(queueName),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	); err != nil {
		publisher.logger.ErrorContext(ctx, "event_publish_failed",
			slog.String("event_type", eventType),
			slog.String("entity_id", entityID),
			slog.Any("error", err),
		)
		return
	}

	publisher.logger.DebugContext(ctx, "event_published",
		slog.String("event_type", eventType),
		slog.String("entity_id", entityID),
	)
}

// Close releases the underlying queue connection.
func (publisher *Publisher) Close() error {
	return publisher.client.Close()
}
