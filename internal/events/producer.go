package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a Kafka topic through a buffered channel so
// request handlers never block on the broker.
type KafkaPublisher struct {
	w      *kafka.Writer
	inbox  chan kafka.Message
	done   chan struct{}
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher and starts its background writer loop.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:  make(chan kafka.Message, 256),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "event-publisher").Logger(),
	}

	go p.loop()
	return p
}

func (p *KafkaPublisher) loop() {
	defer close(p.done)
	for m := range p.inbox {
		if err := p.w.WriteMessages(context.Background(), m); err != nil {
			p.logger.Error().
				Err(err).
				Str("key", string(m.Key)).
				Msg("failed to publish event")
		}
	}
}

// Publish enqueues an event. Events are dropped with a warning when the buffer
// is full rather than blocking the request.
func (p *KafkaPublisher) Publish(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", evt.EventType).Msg("failed to marshal event")
		return
	}

	msg := kafka.Message{
		// Partition key keeps all events for one order on one partition.
		Key:   []byte(evt.OrderID.String()),
		Value: data,
		Time:  time.Now(),
	}

	select {
	case p.inbox <- msg:
	default:
		p.logger.Warn().
			Str("event_type", evt.EventType).
			Str("order_id", evt.OrderID.String()).
			Msg("event buffer full, dropping event")
	}
}

// Close flushes queued events and shuts the writer down.
func (p *KafkaPublisher) Close() error {
	close(p.inbox)
	<-p.done
	return p.w.Close()
}
