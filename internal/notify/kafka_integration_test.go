//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"verity/internal/notify"
	"verity/pkg/testutil/containers"
)

type KafkaNotifierSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaNotifierSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaNotifierSuite))
}

func (s *KafkaNotifierSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaNotifierSuite) TestPublishesKeyedByUser() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "verity.notify.test"
	n, err := notify.NewKafkaNotifier(ctx, notify.KafkaConfig{Brokers: s.brokers, Topic: topic, Partitions: 1})
	s.Require().NoError(err)
	defer n.Close()

	// creating again must tolerate the existing topic
	again, err := notify.NewKafkaNotifier(ctx, notify.KafkaConfig{Brokers: s.brokers, Topic: topic, Partitions: 1})
	s.Require().NoError(err)
	s.Require().NoError(again.Close())

	event := notify.Event{
		Type:       notify.EventStatusChanged,
		UserID:     "0195c2a4-0000-7000-8000-000000000001",
		Verified:   []string{"tax_id", "company"},
		TrustScore: 60,
		OccurredAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(n.Notify(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	rec := records[0]
	s.Equal(event.UserID, string(rec.Key))
	var got notify.Event
	s.Require().NoError(json.Unmarshal(rec.Value, &got))
	s.Equal(event.Verified, got.Verified)
	s.Equal(60, got.TrustScore)
}
