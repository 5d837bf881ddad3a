package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"storefront_api/internal/storefront/internal/models"
	"storefront_api/pkg/logger"
)

// KafkaPublisher sends order.completed events for downstream consumers
// (mail, accounting). Keyed by product so one product's events stay ordered.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      logger.Logger
}

func NewKafkaProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	return config
}

// NewKafkaPublisher dials the brokers with a few retries before giving up.
func NewKafkaPublisher(brokers []string, topic string, attempts int, log logger.Logger) (*KafkaPublisher, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var producer sarama.SyncProducer
	var err error
	for i := 1; i <= attempts; i++ {
		producer, err = sarama.NewSyncProducer(brokers, NewKafkaProducerConfig())
		if err == nil {
			log.Log("kafka producer connected to %v, topic %s", brokers, topic)
			return NewKafkaPublisherWithProducer(producer, topic, log), nil
		}
		log.Warn("waiting for kafka (%d/%d): %v", i, attempts, err)
		if i < attempts {
			time.Sleep(2 * time.Second)
		}
	}
	return nil, fmt.Errorf("failed to start kafka producer: %w", err)
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

func (p *KafkaPublisher) PublishOrderCompleted(ctx context.Context, event models.CompletedOrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(strconv.FormatInt(event.ProductID, 10)),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte("order.completed")},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send kafka message: %w", err)
	}
	p.log.Log("published order %s to %s [%d@%d]", event.OrderID, p.topic, partition, offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCompleted(context.Context, models.CompletedOrderEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
