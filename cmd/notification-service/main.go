// cmd/notification-service/main.go
package main

import (
	"context"
	"time"

	"memberflow/internal/pkg/bootstrap"
	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/mq"
	"memberflow/internal/pkg/redis"
	"memberflow/internal/service/notification/application"
	"memberflow/internal/service/notification/infrastructure"
	"memberflow/internal/service/notification/interfaces"
)

const (
	serviceName = "notification-service"
	dedupTTL    = 24 * time.Hour
)

// main 消费引擎写入 Kafka 的状态变更事件，投递给实体所有者
func main() {
	cfg, err := bootstrap.Init()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(serviceName, cfg.App.LogLevel)

	ctx := context.Background()
	var (
		dedup   application.DedupStore = infrastructure.NewMemoryDedupStore()
		closers []bootstrap.Closer
	)
	if cfg.App.Store.Backend == bootstrap.StoreRedis {
		rc := cfg.Infra.Redis
		client, err := redis.NewClient(ctx, rc.Addr, rc.Password, rc.DB)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to connect to redis")
		}
		dedup = infrastructure.NewRedisDedupStore(client, dedupTTL)
		closers = append(closers, func(context.Context) error { return client.Close() })
	}

	kc := cfg.Infra.Kafka
	reader := mq.NewKafkaReader(kc.Brokers, kc.Topic, kc.GroupID)
	closers = append(closers, func(context.Context) error { return reader.Close() })

	var consumer *interfaces.ConsumerAdapter
	err = bootstrap.StartService(cfg, bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(app bootstrap.AppCtx) ([]bootstrap.Closer, error) {
			svc := application.NewDeliveryService(infrastructure.LogDeliverer{}, dedup, app.Tracer)
			consumer = interfaces.NewConsumerAdapter(reader, svc, app.Tracer)
			return closers, nil
		},
		Workers: []func(ctx context.Context) error{
			func(ctx context.Context) error { return consumer.Run(ctx) },
		},
	})
	if err != nil {
		logger.L().Fatal().Err(err).Msg("notification-service exited with error")
	}
}
