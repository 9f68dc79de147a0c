// Package amqp consumes labelled records from a RabbitMQ queue and feeds
// them to the ingestion coordinator.
//
// Each delivery body is a JSON record or an array of records and is ingested
// as one batch. Malformed or invalid payloads are dropped; deliveries that
// fail because the embedding backend is unavailable are requeued.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/custodia-labs/fintweet/internal/adapters/driven/records"
	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driving"
	"github.com/custodia-labs/fintweet/internal/logger"
)

// DefaultQueue is the queue consumed when none is configured.
const DefaultQueue = "tweets.labeled"

// requeueDelay slows down redelivery while the embedding backend is down.
const requeueDelay = time.Second

// Dial connects to the broker and checks that a channel can be opened.
func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		ch, err := conn.Channel()
		if err == nil {
			err = ch.Close()
		}
		done <- err
	}()

	select {
	case <-checkCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq health check timeout: %w", checkCtx.Err())
	case err := <-done:
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
		}
		return conn, nil
	}
}

// Consumer ingests deliveries from a durable queue with manual acks.
type Consumer struct {
	conn      *amqp.Connection
	ingest    driving.IngestService
	queueName string

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewConsumer creates a consumer for queueName (DefaultQueue when empty).
func NewConsumer(conn *amqp.Connection, ingest driving.IngestService, queueName string) *Consumer {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Consumer{
		conn:      conn,
		ingest:    ingest,
		queueName: queueName,
	}
}

// Start declares the queue and begins consuming in a background goroutine.
// It returns once the subscription is established.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	ch, err := c.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open consumer channel failed: %w", err)
	}

	if _, err = ch.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare queue %s failed: %w", c.queueName, err)
	}

	// One unacked delivery at a time keeps batch ordering intact.
	if err = ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set qos failed: %w", err)
	}

	deliveries, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue %s failed: %w", c.queueName, err)
	}

	logger.Info("consuming from queue %s", c.queueName)

	c.done = make(chan struct{})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.done)
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					logger.Warn("queue %s: delivery channel closed", c.queueName)
					return
				}
				c.process(workerCtx, d)
			}
		}
	}()

	return nil
}

// Done is closed when the consume loop exits, either because Close was
// called or because the broker closed the channel. It is nil before Start.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Close stops consuming and waits for the in-flight delivery to settle.
func (c *Consumer) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// outcome is how a delivery is settled.
type outcome int

const (
	ack outcome = iota
	drop
	requeue
)

func (o outcome) String() string {
	switch o {
	case ack:
		return "ack"
	case drop:
		return "drop"
	default:
		return "requeue"
	}
}

// handle decodes and ingests one delivery body.
func (c *Consumer) handle(ctx context.Context, body []byte) (outcome, error) {
	recs, err := records.DecodeJSON(body)
	if err != nil {
		return drop, err
	}

	report, err := c.ingest.Ingest(ctx, recs)
	switch {
	case err == nil:
		logger.Debug("queue %s: batch %s inserted=%d skipped=%d",
			c.queueName, report.BatchID, report.Inserted, report.Skipped)
		return ack, nil
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, context.Canceled):
		return requeue, err
	default:
		return drop, err
	}
}

// process handles and settles a delivery.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	result, err := c.handle(ctx, d.Body)
	if err != nil {
		logger.Warn("queue %s: delivery %d %s: %v", c.queueName, d.DeliveryTag, result, err)
	}

	switch result {
	case ack:
		_ = d.Ack(false)
	case drop:
		_ = d.Nack(false, false)
	case requeue:
		_ = d.Nack(false, true)
		select {
		case <-ctx.Done():
		case <-time.After(requeueDelay):
		}
	}
}
