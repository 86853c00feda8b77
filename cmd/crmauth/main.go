package main

import (
	"log"

	"github.com/you/crmauth/internal/app"
	"github.com/you/crmauth/internal/config"
	"github.com/you/crmauth/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl := logger.New(cfg.LogLevel, cfg.Env)
	defer zl.Sync()

	if err := app.Run(cfg, zl); err != nil {
		zl.Fatal("app", zap.Error(err))
	}
}
