package usecase

import (
	"context"
	"errors"
	"fmt"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgkafka "RiskPulse/pkg/kafka"
)

// KafkaEventsHandler feeds scored transactions from a Kafka topic into the engine.
//
// Returning nil acknowledges the message. Rejected events are acknowledged:
// replaying them cannot change the outcome. Unparseable JSON and an
// unavailable engine are returned so the consumer retries and dead-letters.
type KafkaEventsHandler struct {
	topic   string
	ingest  *IngestService
	metrics domrepo.Metrics
}

func NewKafkaEventsHandler(topic string, ingest *IngestService, metrics domrepo.Metrics) *KafkaEventsHandler {
	return &KafkaEventsHandler{topic: topic, ingest: ingest, metrics: metrics}
}

func (h *KafkaEventsHandler) Topic() string { return h.topic }

func (h *KafkaEventsHandler) Handle(ctx context.Context, b []byte) error {
	ev, err := models.DecodeScoredTransaction(b)
	if err != nil {
		var ie *models.IngressError
		if errors.As(err, &ie) {
			h.ingest.Reject(SourceKafka, err)
			return nil
		}
		h.metrics.RecordEventIngested(SourceKafka, domrepo.ResultDecode)
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	_, err = h.ingest.Ingest(ctx, SourceKafka, ev)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrEngineUnavailable):
		return fmt.Errorf("ingest %s: %w", ev.ID, err)
	default:
		return nil
	}
}

var _ pkgkafka.MessageHandler = (*KafkaEventsHandler)(nil)
