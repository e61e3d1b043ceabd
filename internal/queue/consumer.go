// This file contains the background consumer that listens to the
// event.notifications queue and delivers best-effort notifications by
// appending composed messages to logs/notifications.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/event-hub/internal/cache"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/repository"
)

// maxAttempts bounds per-task delivery retries. After the last
// attempt the task is dropped with a logged failure; notifications
// are best effort, not guaranteed.
const maxAttempts = 3

// notifiedRetention is how long a delivered mutation id is remembered
// so broker redeliveries do not produce a second notification.
const notifiedRetention = 10 * time.Minute

// The consumer reads through narrow slices of the repositories and
// the dedupe store so delivery logic stays testable without a live
// database or redis.
type userDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type eventSource interface {
	GetByID(ctx context.Context, id uint64) (model.Event, error)
}

type rsvpSource interface {
	GoingUserIDs(ctx context.Context, eventID uint64) ([]uint64, error)
}

type dedupeStore interface {
	SeenMutation(ctx context.Context, mutationID string) (bool, error)
	MarkMutation(ctx context.Context, mutationID string, retention time.Duration) (bool, error)
}

// Consumer drains the notification queue. Recipient resolution goes
// through the repositories; message delivery is an append to the
// notification log, one line per recipient.
type Consumer struct {
	URL     string
	Users   userDirectory
	Events  eventSource
	RSVPs   rsvpSource
	Dedupe  dedupeStore // optional; nil disables consumer-side dedupe
	LogPath string
}

func NewConsumer(users *repository.UserRepo, events *repository.EventRepo, rsvps *repository.RSVPRepo, dedupe *cache.Store) *Consumer {
	return &Consumer{
		URL:     BrokerURL(),
		Users:   users,
		Events:  events,
		RSVPs:   rsvps,
		Dedupe:  dedupe,
		LogPath: filepath.Join("logs", "notifications.log"),
	}
}

// Start connects to RabbitMQ, declares the event.notifications queue
// (durable), and consumes messages until ctx is cancelled. It runs a
// reconnect loop with growing backoff and keeps the server operating
// through broker outages.
func (c *Consumer) Start(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(ctx, conn); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
		_ = conn.Close()
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(notificationQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(notificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleWithRetry(ctx, d.Body); err != nil {
				log.Printf("notify-consumer: dropping task after %d attempts: %v", maxAttempts, err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// backoffDelay returns the wait before retry attempt n (1-based).
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
}

// handleWithRetry runs handleMessage with bounded exponential
// backoff. Only the final error is returned.
func (c *Consumer) handleWithRetry(ctx context.Context, body []byte) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = c.handleMessage(ctx, body); err == nil {
			return nil
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var task NotificationTask
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	// Check-without-set: the dedupe key is only written once delivery
	// has actually happened, so a failed attempt stays retryable and a
	// broker redelivery after a crash is not mistaken for done.
	key := "notified:" + task.MutationID
	if c.Dedupe != nil {
		seen, err := c.Dedupe.SeenMutation(ctx, key)
		if err == nil && seen {
			return nil // already delivered for this mutation
		}
	}

	recipients, subject, err := c.resolve(ctx, task)
	if err != nil {
		return err
	}
	if len(recipients) > 0 {
		if err := c.append(task, subject, recipients); err != nil {
			return err
		}
	}
	if c.Dedupe != nil {
		if _, err := c.Dedupe.MarkMutation(ctx, key, notifiedRetention); err != nil {
			log.Printf("notify-consumer: recording delivery of mutation %s failed: %v", task.MutationID, err)
		}
	}
	return nil
}

// resolve maps a task to recipient addresses and a subject line.
// The event row may be gone for delete mutations; those fall back to
// the event id.
func (c *Consumer) resolve(ctx context.Context, task NotificationTask) ([]string, string, error) {
	title := fmt.Sprintf("event #%d", task.EventID)
	var ev model.Event
	if e, err := c.Events.GetByID(ctx, task.EventID); err == nil {
		ev = e
		title = ev.Title
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}

	switch task.Kind {
	case KindEventCreated:
		addr, err := c.email(ctx, task.ActorID)
		if err != nil {
			return nil, "", err
		}
		return addr, "Event created: " + title, nil
	case KindEventUpdated:
		// Everyone currently going gets the update.
		ids, err := c.RSVPs.GoingUserIDs(ctx, task.EventID)
		if err != nil {
			return nil, "", err
		}
		var addrs []string
		for _, id := range ids {
			a, err := c.email(ctx, id)
			if err != nil {
				return nil, "", err
			}
			addrs = append(addrs, a...)
		}
		return addrs, "Event updated: " + title, nil
	case KindRSVPUpserted, KindRSVPDeleted:
		if ev.ID == 0 {
			return nil, "", nil
		}
		addr, err := c.email(ctx, ev.OrganizerID)
		if err != nil {
			return nil, "", err
		}
		return addr, "RSVP activity on: " + title, nil
	case KindReviewUpserted, KindReviewDeleted:
		if ev.ID == 0 {
			return nil, "", nil
		}
		addr, err := c.email(ctx, ev.OrganizerID)
		if err != nil {
			return nil, "", err
		}
		return addr, "New review on: " + title, nil
	case KindEventDeleted:
		// Attendee rows are already cascaded away; nothing to address.
		return nil, "", nil
	default:
		log.Printf("notify-consumer: unknown task kind %q, dropping", task.Kind)
		return nil, "", nil
	}
}

func (c *Consumer) email(ctx context.Context, userID uint64) ([]string, error) {
	u, err := c.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Email == "" {
		return nil, nil
	}
	return []string{u.Email}, nil
}

func (c *Consumer) append(task NotificationTask, subject string, recipients []string) error {
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := composeLine(task, subject, recipients)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// composeLine renders one human-friendly log line per task.
func composeLine(task NotificationTask, subject string, recipients []string) string {
	return fmt.Sprintf("[%s] %s | kind=%s | event_id=%d | actor_id=%d | mutation=%s | to=[%s]\n",
		task.OccurredAt.UTC().Format(time.RFC3339), subject, task.Kind,
		task.EventID, task.ActorID, task.MutationID, strings.Join(recipients, ","))
}
