// Package events publishes settled weighings to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
)

// EventRecordSettled is the type of the event emitted after a tare leg.
const EventRecordSettled = "record.settled"

// SettlementEvent is the message body written to the settlement topic.
type SettlementEvent struct {
	Type                   string          `json:"type"`
	RecordID               int64           `json:"record_id"`
	PlateNumber            string          `json:"plate_number"`
	StationID              string          `json:"station_id"`
	GrossWeight            float64         `json:"gross_weight"`
	TareWeight             float64         `json:"tare_weight"`
	NetWeight              float64         `json:"net_weight"`
	DiscountPercent        float64         `json:"discount_percent"`
	NetWeightAfterDiscount int64           `json:"net_weight_after_discount"`
	PricePerKg             decimal.Decimal `json:"price_per_kg"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	SettledAt              time.Time       `json:"settled_at"`
}

// NewSettlementEvent builds the event for a settled record.
func NewSettlementEvent(rec models.Record) SettlementEvent {
	ev := SettlementEvent{
		Type:                   EventRecordSettled,
		RecordID:               rec.ID,
		PlateNumber:            rec.PlateNumber,
		StationID:              rec.StationID,
		NetWeight:              rec.NetWeight,
		DiscountPercent:        rec.DiscountPercent,
		NetWeightAfterDiscount: rec.NetWeightAfterDiscount,
		PricePerKg:             rec.PricePerKg,
		TotalAmount:            rec.TotalAmount,
		SettledAt:              rec.Timestamp,
	}
	if rec.GrossWeight != nil {
		ev.GrossWeight = *rec.GrossWeight
	}
	if rec.TareWeight != nil {
		ev.TareWeight = *rec.TareWeight
	}
	return ev
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

// RecordSettled does nothing.
func (Nop) RecordSettled(context.Context, models.Record) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// KafkaPublisher writes settlement events to a Kafka topic, keyed by plate
// number so one truck's visits stay ordered.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// KafkaConfig holds the producer settings.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	RequiredAcks string
	ClientID     string
}

// NewKafkaPublisher connects a synchronous producer to the brokers.
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	acks, err := parseRequiredAcks(cfg.RequiredAcks)
	if err != nil {
		return nil, err
	}
	saramaConfig.Producer.RequiredAcks = acks
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	if cfg.ClientID != "" {
		saramaConfig.ClientID = cfg.ClientID
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating Sarama SyncProducer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// RecordSettled sends one settlement event and waits for the broker ack.
func (p *KafkaPublisher) RecordSettled(ctx context.Context, rec models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(NewSettlementEvent(rec))
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(rec.PlateNumber),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("send settlement event: %w", err)
	}

	p.logger.Debug("settlement event published",
		zap.Int64("record_id", rec.ID),
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
