// cmd/engine-service/main.go
package main

import (
	"memberflow/internal/pkg/bootstrap"
	"memberflow/internal/pkg/logger"
)

// main 是应用的组装根：加载配置、初始化日志，然后把存储、通知与两个上下文的 HTTP 入口装配到一起
func main() {
	cfg, err := bootstrap.Init()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.App.Name, cfg.App.LogLevel)

	if err := bootstrap.StartService(cfg, bootstrap.AppInfo{
		ServiceName:      cfg.App.Name,
		Port:             cfg.App.Port,
		RegisterHandlers: registerHandlers,
	}); err != nil {
		logger.L().Fatal().Err(err).Msg("engine-service exited with error")
	}
}
