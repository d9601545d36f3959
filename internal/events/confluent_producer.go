package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/pkg/log"
)

// ConfluentProducer publishes settlement events to Kafka.
type ConfluentProducer struct {
	producer   *kafka.Producer
	orderTopic string
	giftTopic  string
	doneCh     chan struct{}
}

// NewConfluentProducer creates a Kafka producer for settlement events.
func NewConfluentProducer(brokers, orderTopic, giftTopic string) (*ConfluentProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer:   p,
		orderTopic: orderTopic,
		giftTopic:  giftTopic,
		doneCh:     make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		if msg, ok := e.(*kafka.Message); ok && msg.TopicPartition.Error != nil {
			log.L().Warn().Err(msg.TopicPartition.Error).Msg("kafka delivery failed")
		}
	}
	close(cp.doneCh)
}

// ProduceOrderCreated publishes an order-created record keyed by buyer
// for consistent partition assignment.
func (cp *ConfluentProducer) ProduceOrderCreated(ctx context.Context, order *domain.Order) error {
	value, err := json.Marshal(OrderCreated{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	return cp.produce(cp.orderTopic, []byte(order.BuyerID), value)
}

// ProduceGiftSettled publishes a gift settlement record keyed by room.
func (cp *ConfluentProducer) ProduceGiftSettled(ctx context.Context, settled *GiftSettled) error {
	if settled.SettledAt.IsZero() {
		settled.SettledAt = time.Now()
	}
	value, err := json.Marshal(settled)
	if err != nil {
		return fmt.Errorf("failed to marshal gift event: %w", err)
	}

	return cp.produce(cp.giftTopic, []byte(settled.RoomID), value)
}

func (cp *ConfluentProducer) produce(topic string, key, value []byte) error {
	err := cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   key,
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}
	return nil
}

// Close flushes outstanding deliveries and shuts the producer down.
func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
