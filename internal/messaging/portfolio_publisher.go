package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// Event routing keys for portfolio lifecycle notifications.
const (
	routingKeyCreated = "portfolio.created"
	routingKeyUpdated = "portfolio.updated"
	routingKeyDeleted = "portfolio.deleted"
)

// PortfolioEvent is the message body published on portfolio changes.
type PortfolioEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	UserID      int64     `json:"user_id"`
	PortfolioID string    `json:"portfolio_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// PortfolioPublisher announces portfolio lifecycle changes on a direct
// exchange so downstream services (reporting, notifications) can react.
type PortfolioPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *logrus.Logger
}

// NewPortfolioPublisher connects to RabbitMQ and declares the exchange.
func NewPortfolioPublisher(rabbitURL, exchange string, logger *logrus.Logger) (*PortfolioPublisher, error) {
	conn, err := amqp.Dial(rabbitURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Infof("Portfolio event publisher initialized (exchange: %s)", exchange)

	return &PortfolioPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PortfolioCreated publishes a portfolio.created event.
func (p *PortfolioPublisher) PortfolioCreated(ctx context.Context, userID int64, portfolioID string) error {
	return p.publish(routingKeyCreated, userID, portfolioID)
}

// PortfolioUpdated publishes a portfolio.updated event.
func (p *PortfolioPublisher) PortfolioUpdated(ctx context.Context, userID int64, portfolioID string) error {
	return p.publish(routingKeyUpdated, userID, portfolioID)
}

// PortfolioDeleted publishes a portfolio.deleted event.
func (p *PortfolioPublisher) PortfolioDeleted(ctx context.Context, userID int64, portfolioID string) error {
	return p.publish(routingKeyDeleted, userID, portfolioID)
}

func (p *PortfolioPublisher) publish(routingKey string, userID int64, portfolioID string) error {
	event := PortfolioEvent{
		EventID:     uuid.New().String(),
		EventType:   routingKey,
		UserID:      userID,
		PortfolioID: portfolioID,
		Timestamp:   time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.Publish(
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    event.EventID,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    event.Timestamp,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_type":   routingKey,
		"portfolio_id": portfolioID,
		"user_id":      userID,
	}).Debug("Published portfolio event")

	return nil
}

// Close closes the publisher channel and connection.
func (p *PortfolioPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.logger.Warnf("Error closing channel: %v", err)
	}
	return p.conn.Close()
}
