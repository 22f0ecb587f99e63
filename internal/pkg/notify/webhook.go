package notify

import (
	"context"

	"memberflow/internal/pkg/httpclient"
	"memberflow/internal/pkg/logger"
)

// WebhookDispatcher 把事件以 JSON POST 到外部地址
type WebhookDispatcher struct {
	client *httpclient.Client
	url    string
	secret string
}

func NewWebhookDispatcher(client *httpclient.Client, url, secret string) *WebhookDispatcher {
	return &WebhookDispatcher{client: client, url: url, secret: secret}
}

func (d *WebhookDispatcher) Notify(ctx context.Context, event Event) error {
	headers := map[string]string{"X-Event-ID": event.ID}
	if d.secret != "" {
		headers["X-Webhook-Secret"] = d.secret
	}
	return d.client.PostJSON(ctx, d.url, event, headers)
}

// LogDispatcher 只记录日志，未配置任何投递渠道时使用
type LogDispatcher struct{}

func (LogDispatcher) Notify(ctx context.Context, event Event) error {
	logger.Ctx(ctx).Info().
		Str("item_id", event.ItemID).
		Str("item_kind", event.ItemKind).
		Str("previous_status", event.PreviousStatus).
		Str("new_status", event.NewStatus).
		Msg(event.Summary)
	return nil
}

// Multi 依次调用所有 dispatcher，返回第一个错误
type Multi []Dispatcher

func (m Multi) Notify(ctx context.Context, event Event) error {
	var first error
	for _, d := range m {
		if err := d.Notify(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
