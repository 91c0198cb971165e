// Package kafka wraps sarama consumer groups and producers with JSON payloads.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/IBM/sarama"
)

// MessageHandler processes one consumed message. Returning shouldMark=false
// leaves the offset uncommitted so the message is redelivered.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, message []byte) (shouldMark bool, err error)
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	// OldestFirst starts a new group at the oldest retained offset instead of the newest
	OldestFirst bool
}

// Consumer reads one topic as part of a consumer group
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
}

// NewConsumer joins the consumer group
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if cfg.Handler == nil {
		return nil, errors.New("kafka consumer needs a handler")
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	if cfg.OldestFirst {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: group, handler: cfg.Handler, topic: cfg.Topic, groupID: cfg.GroupID}, nil
}

// Start consumes in the background until ctx is cancelled. It returns once the
// first session is set up.
func (c *Consumer) Start(ctx context.Context) error {
	ready := make(chan struct{})
	h := &groupHandler{handler: c.handler, ready: ready}

	go func() {
		for {
			err := c.group.Consume(ctx, []string{c.topic}, h)
			if err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
					log.Println("Kafka consumer stopped")
					return
				}
				log.Printf("Error from Kafka consumer: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		for err := range c.group.Errors() {
			log.Printf("❌ Kafka consumer error: %v", err)
		}
	}()

	select {
	case <-ready:
		log.Printf("✅ Kafka consumer started (group: %s, topic: %s)", c.groupID, c.topic)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close leaves the group
func (c *Consumer) Close() error {
	log.Println("Closing Kafka consumer...")
	return c.group.Close()
}

type groupHandler struct {
	handler MessageHandler
	ready   chan struct{}
	setup   bool
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	if !h.setup {
		h.setup = true
		close(h.ready)
	}
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			log.Printf("📥 Received Kafka message: partition=%d, offset=%d, key=%s",
				message.Partition, message.Offset, string(message.Key))

			shouldMark, err := h.handler.HandleMessage(session.Context(), string(message.Key), message.Value)
			if err != nil {
				log.Printf("❌ Failed to handle message: %v", err)
			}
			if shouldMark {
				session.MarkMessage(message, "")
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes JSON messages into T before processing them
type TypedMessageHandler[T any] struct {
	// Validate rejects messages that should not be processed
	Validate func(msg *T) error
	// Process handles the decoded message; an error leaves it unmarked
	Process func(ctx context.Context, msg *T) error
	// MarkRejected commits undecodable and invalid messages so they are skipped
	MarkRejected bool
}

func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, key string, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("❌ Failed to unmarshal message %s: %v", key, err)
		return h.MarkRejected, nil
	}

	if h.Validate != nil {
		if err := h.Validate(&msg); err != nil {
			log.Printf("⚠️  Rejected message %s: %v", key, err)
			return h.MarkRejected, nil
		}
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
