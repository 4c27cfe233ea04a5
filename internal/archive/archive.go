// Package archive runs the scheduled sweep that flags idle conversations
// as archived. Archival is advisory: flagged conversations stay readable
// and writable, they just drop out of default listings.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"hiretalk/pkg/config"
	"hiretalk/pkg/directory"
	"hiretalk/pkg/logger"
	"hiretalk/pkg/models"
	"hiretalk/pkg/store"
)

var sweptTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "hiretalk_archive_swept_total",
	Help: "Conversations archived by the idle sweep.",
})

// Start launches the sweep scheduler if archival is enabled. Returns a
// cancel func.
func Start(ctx context.Context, cfg config.ArchiveConfig) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("archive_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 3 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid archive cron expression: %s", cfg.Cron)
	}

	idle := cfg.IdlePeriod.Duration()
	if idle <= 0 {
		idle = 30 * 24 * time.Hour
	}

	logger.Info("archive_enabled", "cron", cronExpr, "idle", idle.String(), "dry_run", cfg.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, idle, cfg.DryRun)
	return cancel, nil
}

// runScheduler sleeps until each next cron tick and triggers a sweep.
func runScheduler(ctx context.Context, cronExpr string, idle time.Duration, dryRun bool) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("archive_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("archive_nexttick_failed", "cron", cronExpr, "error", err.Error())
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if n, err := RunOnce(idle, dryRun); err != nil {
				logger.Error("archive_run_error", "error", err.Error())
			} else {
				logger.Info("archive_run_done", "archived", n)
			}
		case <-ctx.Done():
			logger.Info("archive_scheduler_stopping")
			return
		}
	}
}

// RunOnce sweeps every conversation and archives those idle longer than
// idle. Returns the number archived (or that would be, in dry-run mode).
func RunOnce(idle time.Duration, dryRun bool) (int, error) {
	cutoff := time.Now().Add(-idle).UnixMilli()
	keys, vals, err := store.ScanPrefixKeys(store.ConvKeyPrefix)
	if err != nil {
		return 0, err
	}
	archived := 0
	for i, k := range keys {
		if !strings.HasSuffix(k, ":meta") {
			continue
		}
		var c models.Conversation
		if err := json.Unmarshal(vals[i], &c); err != nil {
			continue
		}
		if c.Archived || c.UpdatedTS >= cutoff {
			continue
		}
		if dryRun {
			logger.Info("archive_would_sweep", "conversation", c.ID, "updated_ts", c.UpdatedTS)
			archived++
			continue
		}
		if _, err := directory.Archive(c.ID, true); err != nil {
			logger.Error("archive_sweep_failed", "conversation", c.ID, "error", err.Error())
			continue
		}
		sweptTotal.Inc()
		archived++
	}
	return archived, nil
}
