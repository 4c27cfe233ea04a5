package main

import (
	"context"

	"hiretalk/internal/app"
	"hiretalk/pkg/config"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	logger.Init()

	flags := config.ParseConfigFlags()
	fileCfg, fileExists, err := config.ParseConfigFile(flags)
	if err != nil {
		shutdown.Abort("config file load failed", err, "")
	}
	envCfg, envRes := config.ParseConfigEnvs()
	eff, err := config.LoadEffectiveConfig(flags, fileCfg, fileExists, envCfg, envRes)
	if err != nil {
		shutdown.Abort("config resolution failed", err, "")
	}

	if lvl := eff.Config.Logging.Level; lvl != "" {
		logger.InitWithLevel(lvl)
	}
	if dir := eff.Config.Logging.AuditDir; dir != "" {
		if err := logger.AttachAuditFileSink(dir); err != nil {
			logger.Warn("audit_sink_unavailable", "dir", dir, "error", err.Error())
		}
	}

	a, err := app.New(eff, version, commit, buildDate, flags.Seed)
	if err != nil {
		shutdown.Abort("startup failed", err, eff.DBPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err, eff.DBPath)
	}
}
