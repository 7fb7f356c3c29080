package repository

import (
	"context"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/domain/repository"
	pkgkafka "SignalPull/pkg/kafka"
)

// KafkaPublisher implements SignalPublisher, keyed by symbol so records of
// one instrument stay ordered.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaPublisher(p *pkgkafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

var _ repository.SignalPublisher = (*KafkaPublisher)(nil)

func (k *KafkaPublisher) Publish(ctx context.Context, r *models.Record) error {
	return k.producer.Publish(ctx, r.Symbol, r)
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
