// internal/service/notification/interfaces/kafka_consumer.go
package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/metrics"
	"memberflow/internal/pkg/mq"
	"memberflow/internal/pkg/notify"
	"memberflow/internal/service/notification/application"
)

// MessageReader 是 kafka.Reader 中消费者用到的部分
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ConsumerAdapter 监听通知主题并驱动 DeliveryService
type ConsumerAdapter struct {
	reader     MessageReader
	service    *application.DeliveryService
	tracer     trace.Tracer
	fetchPause time.Duration
}

func NewConsumerAdapter(reader MessageReader, service *application.DeliveryService, tracer trace.Tracer) *ConsumerAdapter {
	return &ConsumerAdapter{reader: reader, service: service, tracer: tracer, fetchPause: time.Second}
}

// Run 循环消费直到 ctx 取消。每条消息处理完（成功或进入死信日志）都会提交 offset。
func (a *ConsumerAdapter) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Msg("Notification consumer started")
	for {
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("Notification consumer shutting down")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("Could not fetch message, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(a.fetchPause):
			}
			continue
		}

		a.process(ctx, msg)

		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit message")
		}
	}
}

func (a *ConsumerAdapter) process(parent context.Context, msg kafka.Message) {
	ctx := mq.ExtractTraceContext(parent, msg.Headers)
	ctx, span := a.tracer.Start(ctx, "notification-service.Consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
			attribute.String("messaging.kafka.message.key", string(msg.Key)),
		))
	defer span.End()

	var event notify.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logDeadLetter(ctx, msg, err)
		return
	}
	if err := a.service.Handle(ctx, event); err != nil {
		logDeadLetter(ctx, msg, err)
	}
}

// logDeadLetter 无法投递的消息只记录下来，不阻塞分区
func logDeadLetter(ctx context.Context, msg kafka.Message, cause error) {
	metrics.NotificationDeliveries.WithLabelValues("dead_letter").Inc()
	logger.Ctx(ctx).Error().
		Err(cause).
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("Dead letter notification")
}
