package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"FinCast/internal/domain"
	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgkafka "FinCast/pkg/kafka"
)

// KafkaRunHandler runs forecasts requested on a Kafka topic.
// incoming message schema: {symbol, backend}
type KafkaRunHandler struct {
	topic   string
	runner  *ForecastRunner
	metrics domrepo.Metrics
}

func NewKafkaRunHandler(topic string, runner *ForecastRunner, metrics domrepo.Metrics) *KafkaRunHandler {
	return &KafkaRunHandler{topic: topic, runner: runner, metrics: metrics}
}

func (h *KafkaRunHandler) Topic() string { return h.topic }

func (h *KafkaRunHandler) Handle(ctx context.Context, b []byte) error {
	var req models.RunRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: run request: %v", domain.ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.Symbol) == "" {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("%w: run request without symbol", domain.ErrInvalidRequest)
	}
	_, err := h.runner.RunSymbol(ctx, req.Symbol, req.Backend)
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaRunHandler)(nil)
