package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier produces events keyed by user ID so one user's events stay
// ordered within a partition.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

// KafkaConfig configures the Kafka notifier.
type KafkaConfig struct {
	Brokers    []string
	Topic      string
	Partitions int32
	// Replication is the replication factor used when the topic is created.
	Replication int16
}

// NewKafkaNotifier connects to the brokers and creates the topic if it does
// not exist.
func NewKafkaNotifier(ctx context.Context, cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client, cfg); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaNotifier{client: client, topic: cfg.Topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, cfg KafkaConfig) error {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 3
	}
	replication := cfg.Replication
	if replication <= 0 {
		replication = 1
	}
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("kafka create topic: %w", err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("kafka create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

func (k *KafkaNotifier) Notify(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(e.UserID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := k.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafka produce: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	k.client.Close()
	return nil
}
