package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rs/zerolog"
)

// Client consumes and publishes ledger change messages. The connection is
// re-dialed on the next consume or publish after it drops.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       zerolog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient dials the broker and declares the exchange and queue
func NewClient(url, exchangeName, queueName string, logger zerolog.Logger) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.With().Str("component", "amqp").Str("queue", queueName).Logger(),
	}

	if _, err := client.ensureChannel(); err != nil {
		return nil, err
	}

	return client, nil
}

// ensureChannel returns an open channel, dialing again when needed
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return channel, nil
}

func setup(channel *amqp091.Channel, exchangeName, queueName string) error {
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange
	if err := channel.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishLedgerChange publishes a ledger change message
func (c *Client) PublishLedgerChange(ctx context.Context, msg *LedgerChangeMessage) error {
	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}

	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.Debug().
		Str("user_id", msg.UserID.String()).
		Int("year", msg.Year).
		Int("month", msg.Month).
		Msg("Published ledger change message")

	return nil
}

// newPublishing validates msg and wraps it as a persistent JSON delivery.
// Invalid changes are refused here so consumers never have to reject them.
func newPublishing(msg *LedgerChangeMessage) (amqp091.Publishing, error) {
	if err := msg.LedgerChange().Validate(); err != nil {
		return amqp091.Publishing{}, err
	}
	body, err := msg.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}
	timestamp := msg.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    timestamp,
		Body:         body,
	}, nil
}

// ConsumeLedgerChanges delivers ledger changes to handler until ctx ends or
// the delivery channel closes
func (c *Client) ConsumeLedgerChanges(ctx context.Context, handler domain.LedgerChangeHandler) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		if isConnectionError(err) {
			c.Close()
		}
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info().Msg("Started consuming ledger change messages")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Err(ctx.Err()).Msg("Stopping message consumption")
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.settle(delivery, dispatch(ctx, delivery.Body, handler, c.logger))
		}
	}
}

// outcome says how a delivery is settled
type outcome int

const (
	outcomeAck outcome = iota
	outcomeReject
	outcomeRequeue
)

// dispatch decodes one delivery body and hands it to handler. Malformed or
// invalid messages are rejected; handler failures are requeued.
func dispatch(ctx context.Context, body []byte, handler domain.LedgerChangeHandler, logger zerolog.Logger) outcome {
	msg, err := LedgerChangeMessageFromJSON(body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to unmarshal message")
		return outcomeReject
	}

	change := msg.LedgerChange()
	if err := change.Validate(); err != nil {
		logger.Error().Err(err).Msg("Discarding invalid ledger change")
		return outcomeReject
	}

	if err := handler(ctx, change); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			logger.Error().Err(err).Str("user_id", change.UserID.String()).Msg("Ledger change rejected")
			return outcomeReject
		}
		logger.Error().Err(err).Str("user_id", change.UserID.String()).Msg("Failed to handle message")
		return outcomeRequeue
	}

	logger.Debug().
		Str("user_id", change.UserID.String()).
		Str("from_month", change.FromMonth.String()).
		Msg("Processed ledger change message")
	return outcomeAck
}

func (c *Client) settle(delivery amqp091.Delivery, o outcome) {
	var err error
	switch o {
	case outcomeAck:
		err = delivery.Ack(false)
	case outcomeReject:
		err = delivery.Nack(false, false)
	case outcomeRequeue:
		err = delivery.Nack(false, true)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to settle delivery")
	}
}

// isConnectionError reports whether err means the broker link is gone
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Close closes the channel and connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
