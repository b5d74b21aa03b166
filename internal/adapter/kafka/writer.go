package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Writer publishes assessments and alert decisions to their topics.
// It implements evaluator.Publisher.
type Writer struct {
	writer          *kafkago.Writer
	assessmentTopic string
	alertTopic      string
	logger          *slog.Logger
}

// NewWriter creates a Kafka producer. The topic is set per message.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{
		writer:          w,
		assessmentTopic: cfg.KafkaAssessmentTopic,
		alertTopic:      cfg.KafkaAlertTopic,
		logger:          logger,
	}
}

// PublishAssessments writes one message per assessment, keyed by unit id so
// a unit's assessments stay ordered within a partition.
func (w *Writer) PublishAssessments(ctx context.Context, assessments []domain.RiskAssessment) error {
	if len(assessments) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(assessments))
	for i := range assessments {
		msg, err := assessmentMessage(w.assessmentTopic, assessments[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// PublishDecisions writes alert decisions to the alert topic.
func (w *Writer) PublishDecisions(ctx context.Context, decisions []alert.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(decisions))
	for i := range decisions {
		msg, err := decisionMessage(w.alertTopic, decisions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func assessmentMessage(topic string, a domain.RiskAssessment) (kafkago.Message, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(a.UnitID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_state", Value: []byte(a.RiskState)},
			{Key: "assessed_at", Value: []byte(a.AssessedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

func decisionMessage(topic string, d alert.Decision) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert decision: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(d.UnitID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "outcome", Value: []byte(d.Outcome)},
			{Key: "decided_at", Value: []byte(d.DecidedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
