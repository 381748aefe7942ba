package repository

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgkafka "RiskPulse/pkg/kafka"

	"github.com/shopspring/decimal"
)

type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// alertMessage is the JSON published per alert.
type alertMessage struct {
	ID         string          `json:"id"`
	EventID    string          `json:"eventId"`
	AccountID  string          `json:"accountId,omitempty"`
	Category   string          `json:"category"`
	Title      string          `json:"title"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurredAt"`
	RiskTier   string          `json:"riskTier"`
	RiskScore  float64         `json:"riskScore"`
}

// KafkaAlertPublisher publishes alerts to a Kafka topic. Messages are keyed
// by account so one account's alerts stay ordered on a partition.
type KafkaAlertPublisher struct {
	producer batchProducer
	topic    string
}

func NewKafkaAlertPublisher(producer batchProducer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, alerts []models.AlertRecord) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(alerts))
	for i, a := range alerts {
		key := a.AccountID
		if key == "" {
			key = a.EventID
		}
		msgs[i] = pkgkafka.Message{
			Key: []byte(key),
			Value: alertMessage{
				ID:         a.ID,
				EventID:    a.EventID,
				AccountID:  a.AccountID,
				Category:   string(a.Category),
				Title:      a.Category.Title(),
				Amount:     a.Amount,
				OccurredAt: a.OccurredAt.UTC(),
				RiskTier:   string(a.RiskTier),
				RiskScore:  a.RiskScore,
			},
			Headers: map[string]string{"category": string(a.Category)},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaAlertPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.AlertPublisher = (*KafkaAlertPublisher)(nil)
