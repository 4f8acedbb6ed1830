package repository

import (
	"context"
	"fmt"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	applogger "FinCast/pkg/logger"
)

// EventPublisher is the part of the Kafka producer used for forecast events.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaForecastPublisher emits each completed forecast as one event keyed by symbol.
type KafkaForecastPublisher struct {
	producer  EventPublisher
	topic     string
	precision int32
	l         *applogger.Logger
}

func NewKafkaForecastPublisher(p EventPublisher, topic string, precision int32, l *applogger.Logger) *KafkaForecastPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaForecastPublisher{producer: p, topic: topic, precision: precision, l: l}
}

func (k *KafkaForecastPublisher) Name() string { return "kafka" }

func (k *KafkaForecastPublisher) Save(ctx context.Context, t *models.ForecastTable) error {
	event := models.NewForecastDTO(t, k.precision)
	if err := k.producer.Publish(ctx, k.topic, []byte(t.Symbol), event); err != nil {
		return fmt.Errorf("publish forecast %s/%s: %w", t.Symbol, t.Backend, err)
	}
	k.l.Debug("forecast event published",
		applogger.String("topic", k.topic),
		applogger.String("symbol", t.Symbol),
		applogger.String("backend", t.Backend),
	)
	return nil
}

var _ domrepo.ForecastSink = (*KafkaForecastPublisher)(nil)
