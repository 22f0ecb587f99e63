package main

import (
	"context"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"

	"memberflow/internal/pkg/authctx"
	"memberflow/internal/pkg/bootstrap"
	"memberflow/internal/pkg/database"
	"memberflow/internal/pkg/httpclient"
	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/mq"
	"memberflow/internal/pkg/notify"
	"memberflow/internal/pkg/redis"
	membershipapp "memberflow/internal/service/membership/application"
	membershipdomain "memberflow/internal/service/membership/domain"
	membershipinfra "memberflow/internal/service/membership/infrastructure"
	membershipapi "memberflow/internal/service/membership/interfaces"
	workflowapp "memberflow/internal/service/workflow/application"
	workflowdomain "memberflow/internal/service/workflow/domain"
	workflowinfra "memberflow/internal/service/workflow/infrastructure"
	workflowapi "memberflow/internal/service/workflow/interfaces"
)

// stores 一种存储后端下两个上下文的全部仓储
type stores struct {
	cards     membershipdomain.CardRepository
	merchants membershipdomain.MerchantRepository
	items     workflowdomain.ItemRepository
	closers   []bootstrap.Closer
}

func registerHandlers(app bootstrap.AppCtx) ([]bootstrap.Closer, error) {
	ctx := context.Background()
	cfg := app.Config

	st, err := buildStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dispatcher, dispatcherClosers := buildDispatcher(cfg, app.Tracer)
	closers := append(st.closers, dispatcherClosers...)

	timeout := cfg.App.Store.Timeout
	ledger := membershipapp.NewLedgerService(st.cards, st.merchants, dispatcher, app.Tracer, timeout)
	workflow := workflowapp.NewWorkflowService(st.items, dispatcher, app.Tracer, timeout)

	resolver := authctx.NewRoleResolver(cfg.App.AdminEmails, cfg.App.StaffEmails)
	app.Router.Group(func(r chi.Router) {
		r.Use(authctx.Middleware(resolver, cfg.App.InternalToken))
		membershipapi.NewMembershipHandler(ledger).RegisterRoutes(r)
		workflowapi.NewWorkflowHandler(workflow).RegisterRoutes(r)
	})

	logger.L().Info().
		Str("store", cfg.App.Store.Backend).
		Strs("notify", cfg.App.Notify.Backends).
		Msg("engine wired")
	return closers, nil
}

func buildStores(ctx context.Context, cfg *bootstrap.Config) (*stores, error) {
	switch cfg.App.Store.Backend {
	case bootstrap.StoreMySQL:
		return mysqlStores(ctx, cfg)
	case bootstrap.StoreRedis:
		return redisStores(ctx, cfg)
	default:
		merchants := membershipinfra.NewMemoryMerchantRepository()
		for _, m := range seedMerchants(cfg) {
			if err := merchants.Put(m); err != nil {
				return nil, errors.Wrapf(err, "failed to seed merchant %s", m.ID)
			}
		}
		return &stores{
			cards:     membershipinfra.NewMemoryCardRepository(),
			merchants: merchants,
			items:     workflowinfra.NewMemoryItemRepository(),
		}, nil
	}
}

func mysqlStores(ctx context.Context, cfg *bootstrap.Config) (*stores, error) {
	my := cfg.Infra.MySQL
	db, err := database.Open(database.Options{
		DSN:             my.DSN,
		MaxOpenConns:    my.MaxOpenConns,
		MaxIdleConns:    my.MaxIdleConns,
		ConnMaxLifetime: my.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	closeDB := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	if err := database.Ping(ctx, db); err != nil {
		_ = closeDB(ctx)
		return nil, err
	}
	if cfg.App.Store.AutoMigrate {
		if err := membershipinfra.AutoMigrate(db); err != nil {
			_ = closeDB(ctx)
			return nil, err
		}
		if err := workflowinfra.AutoMigrate(db); err != nil {
			_ = closeDB(ctx)
			return nil, err
		}
	}
	// MySQL 里的商户由入驻流程写入，这里不做种子数据
	return &stores{
		cards:     membershipinfra.NewGormCardRepository(db),
		merchants: membershipinfra.NewGormMerchantRepository(db),
		items:     workflowinfra.NewGormItemRepository(db),
		closers:   []bootstrap.Closer{closeDB},
	}, nil
}

func redisStores(ctx context.Context, cfg *bootstrap.Config) (*stores, error) {
	rc := cfg.Infra.Redis
	client, err := redis.NewClient(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		return nil, err
	}
	st, err := redisStoresFromClient(ctx, client, seedMerchants(cfg))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	st.closers = append(st.closers, func(context.Context) error { return client.Close() })
	return st, nil
}

func redisStoresFromClient(ctx context.Context, client *redis.Client, seeds []membershipdomain.Merchant) (*stores, error) {
	cards, err := membershipinfra.NewRedisCardRepository(client)
	if err != nil {
		return nil, err
	}
	items, err := workflowinfra.NewRedisItemRepository(client)
	if err != nil {
		return nil, err
	}
	merchants := membershipinfra.NewRedisMerchantRepository(client)
	for _, m := range seeds {
		if err := merchants.Put(ctx, m); err != nil {
			return nil, errors.Wrapf(err, "failed to seed merchant %s", m.ID)
		}
	}
	return &stores{cards: cards, merchants: merchants, items: items}, nil
}

func seedMerchants(cfg *bootstrap.Config) []membershipdomain.Merchant {
	out := make([]membershipdomain.Merchant, 0, len(cfg.App.Merchants))
	for _, s := range cfg.App.Merchants {
		out = append(out, membershipdomain.Merchant{
			ID:          s.ID,
			Name:        s.Name,
			Slug:        s.Slug,
			AccentColor: s.AccentColor,
			Active:      s.Active,
		})
	}
	return out
}

// buildDispatcher 按配置顺序组合通知渠道；未配置任何渠道时退化为只打日志
func buildDispatcher(cfg *bootstrap.Config, tracer trace.Tracer) (notify.Dispatcher, []bootstrap.Closer) {
	var (
		multi   notify.Multi
		closers []bootstrap.Closer
	)
	for _, name := range cfg.App.Notify.Backends {
		switch strings.TrimSpace(name) {
		case "log":
			multi = append(multi, notify.LogDispatcher{})
		case "kafka":
			kc := cfg.Infra.Kafka
			writer := mq.NewKafkaWriter(kc.Brokers, kc.Topic)
			multi = append(multi, notify.NewKafkaDispatcher(writer, kc.Topic))
			closers = append(closers, func(context.Context) error { return writer.Close() })
		case "webhook":
			nc := cfg.App.Notify
			multi = append(multi, notify.NewWebhookDispatcher(httpclient.NewClient(tracer), nc.WebhookURL, nc.WebhookSecret))
		}
	}
	if len(multi) == 0 {
		return notify.LogDispatcher{}, closers
	}
	if len(multi) == 1 {
		return multi[0], closers
	}
	return multi, closers
}
