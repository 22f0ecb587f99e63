// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"memberflow/internal/pkg/logger"
	"memberflow/internal/pkg/nacos"
	"memberflow/internal/pkg/tracing"
	"memberflow/internal/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

// AppCtx 传给各服务注册函数的运行时依赖
type AppCtx struct {
	Router chi.Router
	Config *Config
	Tracer trace.Tracer
}

// Closer 在关停时按注册的逆序调用
type Closer func(ctx context.Context) error

// AppInfo 包含了启动一个服务所需的特定信息
type AppInfo struct {
	ServiceName string
	Port        int

	// RegisterHandlers 注册路由并返回需要在关停时释放的资源
	RegisterHandlers func(appCtx AppCtx) ([]Closer, error)

	// Workers 与 HTTP 服务并行运行的后台循环（例如 Kafka 消费者），ctx 取消时应返回
	Workers []func(ctx context.Context) error
}

// StartService 封装了所有服务的通用启动和优雅关停逻辑，直到收到退出信号或某个组件失败才返回
func StartService(cfg *Config, info AppInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return run(ctx, cfg, info)
}

func run(ctx context.Context, cfg *Config, info AppInfo) error {
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		return errors.Wrap(err, "failed to initialize tracer provider")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("Error shutting down tracer provider")
		}
	}()

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Handle("/metrics", promhttp.Handler())

	var closers []Closer
	if info.RegisterHandlers != nil {
		closers, err = info.RegisterHandlers(AppCtx{
			Router: router,
			Config: cfg,
			Tracer: otel.Tracer(info.ServiceName),
		})
		if err != nil {
			return errors.Wrapf(err, "failed to wire %s", info.ServiceName)
		}
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](closeCtx); err != nil {
				logger.L().Error().Err(err).Msg("Error releasing resource")
			}
		}
	}()

	deregister, err := register(cfg, info)
	if err != nil {
		return err
	}
	defer deregister()

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.L().Info().Int("port", info.Port).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "could not listen on %s", server.Addr)
		}
		return nil
	})
	for _, w := range info.Workers {
		w := w
		g.Go(func() error { return w(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info().Msgf("Shutting down service %s...", info.ServiceName)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.L().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return err
}

// register 在启用 Nacos 时注册服务实例，返回对应的注销函数
func register(cfg *Config, info AppInfo) (func(), error) {
	nc := cfg.Infra.Nacos
	if !nc.Enabled {
		return func() {}, nil
	}

	client, err := nacos.NewNacosClient(nc.Addrs, nc.Namespace, nc.Group)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize nacos client")
	}
	ip, err := utils.GetOutboundIP()
	if err != nil {
		client.Close()
		return nil, err
	}
	if err := client.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		client.Close()
		return nil, err
	}

	return func() {
		if err := client.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.L().Error().Err(err).Msg("Error deregistering from Nacos")
		}
		client.Close()
	}, nil
}
