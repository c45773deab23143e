package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// Enqueuer publishes units of work onto the per-kind queues.
type Enqueuer struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewEnqueuer(publisher message.Publisher, logger *slog.Logger) *Enqueuer {
	return &Enqueuer{
		publisher: publisher,
		logger:    logger,
	}
}

func (e *Enqueuer) publish(ctx context.Context, queue string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.SetContext(ctx)

	if err := e.publisher.Publish(queue, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	e.logger.Debug("Task enqueued", "queue", queue, "message_id", msg.UUID)
	return nil
}

func (e *Enqueuer) EnqueueNotification(ctx context.Context, task models.NotificationTask) error {
	return e.publish(ctx, QueueNotifications, task)
}

func (e *Enqueuer) EnqueueAnalytics(ctx context.Context, surveyID uint) error {
	return e.publish(ctx, QueueAnalytics, models.AnalyticsTask{SurveyID: surveyID})
}

func (e *Enqueuer) EnqueueExport(ctx context.Context, surveyID uint, format models.ExportFormat) error {
	return e.publish(ctx, QueueExports, models.ExportTask{SurveyID: surveyID, Format: format})
}

// ===== QUEUE TRANSPORTS =====

// NewGoChannelPubSub builds the in-process transport used for single-node
// deployments and tests. Persistent buffering keeps messages for handlers
// that subscribe after publishing starts.
func NewGoChannelPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
		Persistent:          true,
	}, logger)
}

// NewKafkaPublisher builds the production queue publisher.
func NewKafkaPublisher(brokers []string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
}

// NewKafkaSubscriber builds the production queue subscriber. Workers sharing
// a consumer group split the queues between them.
func NewKafkaSubscriber(brokers []string, consumerGroup string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:       brokers,
		Unmarshaler:   kafka.DefaultMarshaler{},
		ConsumerGroup: consumerGroup,
	}, logger)
}
