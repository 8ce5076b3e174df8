package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oceanwatch/pkg/types"

	kafkago "github.com/segmentio/kafka-go"
)

const TypeReportCreated = "report.created"

// ReportEvent is the message published for every accepted report.
type ReportEvent struct {
	Type       string                `json:"type"`
	Report     *types.IncidentReport `json:"report"`
	OccurredAt time.Time             `json:"occurredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher produces report events to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a producer for topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaPublisher{writer: w}
}

// ReportCreated publishes a report.created event keyed by report ID so all
// events for one report land on the same partition.
func (p *KafkaPublisher) ReportCreated(ctx context.Context, report *types.IncidentReport) error {
	msg, err := serializeReportEvent(ReportEvent{
		Type:       TypeReportCreated,
		Report:     report,
		OccurredAt: report.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeReportEvent(event ReportEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Report.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "hazard_type", Value: []byte(event.Report.HazardType)},
			{Key: "severity", Value: []byte(event.Report.Severity)},
		},
	}, nil
}
