package queue

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const auditQueueName = "booking.audit"

// auditBindings are the routing keys the audit queue receives.
var auditBindings = []string{"booking.#", "credit.#"}

// AuditConsumer appends every booking event to an audit log file.  It
// drops redeliveries of recently seen event IDs so a broker retry does not
// write the same line twice.
type AuditConsumer struct {
	url      string
	exchange string
	path     string
	log      *zap.Logger
	seen     *recentIDs
}

// NewAuditConsumer returns a consumer writing to path (logs/booking.log by
// default).
func NewAuditConsumer(url, exchange, path string, log *zap.Logger) *AuditConsumer {
	if path == "" {
		path = filepath.Join("logs", "booking.log")
	}
	return &AuditConsumer{url: url, exchange: exchange, path: path, log: log, seen: newRecentIDs(1024)}
}

// Run connects to RabbitMQ, declares the audit queue bound to the events
// exchange and consumes until ctx is cancelled.  Broker failures are logged
// and retried with exponential backoff; processing errors reject the
// offending message so the loop keeps going.
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		// Stop as soon as the caller cancels; a shutdown is not an error
		// worth retrying.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("audit-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			// Double the wait after each failed dial, capped at 30s.
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		// consumeLoop only returns when the channel or connection dies (or
		// ctx is cancelled); either way the connection is closed before
		// dialing again.
		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("audit-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Limit unacknowledged deliveries so a burst of events does not pile up
	// in memory while the log file is written.
	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("audit-consumer: set QoS failed", zap.Error(err))
	}
	if err := declareExchange(ch, c.exchange); err != nil {
		return err
	}
	// Durable, non-exclusive queue: events published while the consumer is
	// down wait in the broker.
	q, err := ch.QueueDeclare(auditQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range auditBindings {
		if err := ch.QueueBind(q.Name, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	// Manual acks: a message is acknowledged only after its line is written.
	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for d := range msgs {
		if err := c.handle(d.Body); err != nil {
			c.log.Error("audit-consumer: handle message failed", zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *AuditConsumer) handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	// A redelivered event that was already written is acknowledged
	// without writing it twice.
	if ev.EventID != "" && !c.seen.add(ev.EventID) {
		return nil
	}
	return appendLine(c.path, ev.LogLine())
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	// O_APPEND keeps each line whole even if another process appends too.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// recentIDs is a bounded set remembering the last n event IDs.
type recentIDs struct {
	max   int
	order *list.List
	index map[string]*list.Element
}

func newRecentIDs(max int) *recentIDs {
	return &recentIDs{max: max, order: list.New(), index: make(map[string]*list.Element, max)}
}

// add records id and reports whether it was new.
func (r *recentIDs) add(id string) bool {
	if _, ok := r.index[id]; ok {
		return false
	}
	r.index[id] = r.order.PushBack(id)
	if r.order.Len() > r.max {
		oldest := r.order.Front()
		r.order.Remove(oldest)
		delete(r.index, oldest.Value.(string))
	}
	return true
}
