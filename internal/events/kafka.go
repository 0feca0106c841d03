package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// KafkaPublisher writes events to a topic, keyed by event type.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// DialKafka connects a synchronous producer, retrying while the brokers
// come up.
func DialKafka(brokers []string, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	var err error
	for i := 1; i <= 5; i++ {
		var producer sarama.SyncProducer
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Printf("Kafka producer connected to %v", brokers)
			return NewKafkaPublisher(producer, topic), nil
		}
		log.Printf("Failed to connect to Kafka (try %d/5): %v", i, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("could not connect to kafka: %w", err)
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (k *KafkaPublisher) Publish(_ context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.Type),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send %s event: %w", ev.Type, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
