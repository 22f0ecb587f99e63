package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"memberflow/internal/pkg/mq"
)

// KafkaDispatcher 把事件写入通知主题，由 notification-service 消费后投递邮件
type KafkaDispatcher struct {
	writer mq.MessageWriter
	topic  string
}

func NewKafkaDispatcher(writer mq.MessageWriter, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{writer: writer, topic: topic}
}

// Notify 以 ItemID 作为消息 key，同一实体的事件落在同一分区
func (d *KafkaDispatcher) Notify(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	return mq.ProduceMessage(ctx, d.writer, d.topic, []byte(event.ItemID), value)
}
