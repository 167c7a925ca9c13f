package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"parkops/internal/db"
)

// TransitionEvent is published after every successful ticket transition.
// From is empty for a freshly checked-in ticket.
type TransitionEvent struct {
	TicketID string    `json:"ticket_id"`
	OrgID    string    `json:"org_id"`
	StoreID  string    `json:"store_id"`
	Event    Event     `json:"event"`
	From     db.Status `json:"from"`
	To       db.Status `json:"to"`
	At       time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev TransitionEvent) error
}

// RedisNotifier publishes events as JSON on a per-org channel so live
// dashboards can subscribe to their own org only.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

func (n *RedisNotifier) Channel(orgID string) string {
	return n.prefix + ":" + orgID
}

func (n *RedisNotifier) Notify(ctx context.Context, ev TransitionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal transition event: %w", err)
	}
	if err := n.client.Publish(ctx, n.Channel(ev.OrgID), string(payload)).Err(); err != nil {
		return fmt.Errorf("publish transition event: %w", err)
	}
	return nil
}

// LogNotifier writes events to the log. Used when no Redis is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, ev TransitionEvent) error {
	n.logger.InfoContext(ctx, "ticket transition",
		"ticket_id", ev.TicketID,
		"org_id", ev.OrgID,
		"store_id", ev.StoreID,
		"event", ev.Event,
		"from", ev.From,
		"to", ev.To,
		"at", ev.At,
	)
	return nil
}
