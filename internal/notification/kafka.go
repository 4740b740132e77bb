package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

// KafkaChannel publishes breaches to a topic, keyed by ticket id.
type KafkaChannel struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducer dials the brokers with acks from all in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	return sarama.NewSyncProducer(brokers, cfg)
}

// NewKafkaChannel wraps an existing producer.
func NewKafkaChannel(producer sarama.SyncProducer, topic string) *KafkaChannel {
	return &KafkaChannel{producer: producer, topic: topic}
}

func (c *KafkaChannel) Notify(_ context.Context, breach Breach) error {
	body, err := json.Marshal(breach)
	if err != nil {
		return err
	}
	_, _, err = c.producer.SendMessage(&sarama.ProducerMessage{
		Topic: c.topic,
		Key:   sarama.StringEncoder(breach.TicketID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("checkpoint"), Value: []byte(breach.Checkpoint)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// Close releases the producer.
func (c *KafkaChannel) Close() error {
	return c.producer.Close()
}
