package rabbitmq

import (
	"fmt"
	"time"

	"github.com/ilindan-dev/local-notifier/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const (
	connectionName   = "local-notifier"
	defaultHeartbeat = 10 * time.Second
)

// NewConnection dials the broker once. The API publisher and the worker
// consumer open their own channels on it.
func NewConnection(cfg *config.Config, logger *zerolog.Logger) (*amqp.Connection, error) {
	heartbeat := cfg.RabbitMQ.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(connectionName)

	conn, err := amqp.DialConfig(cfg.RabbitMQ.DSN, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: failed to connect: %w", err)
	}

	log := logger.With().Str("component", "rabbitmq_connection").Logger()
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if amqpErr, ok := <-closed; ok && amqpErr != nil {
			log.Error().Int("code", amqpErr.Code).Str("reason", amqpErr.Reason).Msg("connection closed by broker")
		}
	}()

	return conn, nil
}
