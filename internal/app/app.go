package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"hiretalk/internal/archive"
	"hiretalk/pkg/api/handlers"
	"hiretalk/pkg/config"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/fanout"
	"hiretalk/pkg/ledger"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/notify"
	"hiretalk/pkg/readstate"
	"hiretalk/pkg/seed"
	"hiretalk/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string
	seedPath  string

	bus      *fanout.Bus
	notifier *notify.Notifier
	srv      *http.Server
}

// New initializes resources that do not require a running context: the
// store, runtime keys, the event bus and handler wiring. Call Run to
// start the HTTP server and background workers.
func New(eff config.EffectiveConfigResult, version, commit, buildDate, seedPath string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, seedPath: seedPath}
	a.bus = fanout.NewBus(eff.Config.Fanout.QueueCapacity, int(eff.Config.Fanout.MaxPooledBufferBytes.Int64()))
	ledger.SetBus(a.bus)
	readstate.SetBus(a.bus)
	handlers.SetBus(a.bus)
	a.notifier = notify.New(a.bus)

	if ttl := eff.Config.Presence.TypingTTL.Duration(); ttl > 0 {
		directory.SetTypingTTL(ttl)
	}
	if err := a.setupAttachments(); err != nil {
		return nil, err
	}
	return a, nil
}

// Run starts the background workers and the HTTP server and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	if a.seedPath != "" {
		if err := seed.Run(a.seedPath); err != nil {
			return fmt.Errorf("seed fixture: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	a.notifier.Start(gctx)

	archiveCancel, err := archive.Start(gctx, a.eff.Config.Archive)
	if err != nil {
		return err
	}
	defer archiveCancel()

	errCh := a.startHTTP()

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				store.UpdateDBSizeMetric(a.eff.DBPath)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(shutCtx); err != nil {
			logger.Warn("http_shutdown_error", "error", err.Error())
		}
		return nil
	})

	err = g.Wait()
	if cerr := store.Close(); cerr != nil {
		logger.Warn("store_close_error", "error", cerr.Error())
	}
	return err
}
