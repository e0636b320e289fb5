package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "dropwatch/pkg/logx"
)

// notifyReady tells systemd the process is up. A no-op outside a unit with
// Type=notify.
func (a *App) notifyReady() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify ready sent")
	}
}

func (a *App) notifyStopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// watchdogLoop feeds the systemd watchdog at half the configured interval.
// Exits quietly when no watchdog is configured.
func (a *App) watchdogLoop(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		a.log.Warn("sd_watchdog check failed", logx.Err(err))
		return nil
	}
	if interval <= 0 {
		return nil
	}

	tick := time.NewTicker(interval / 2)
	defer tick.Stop()
	a.log.Debug("sd_watchdog enabled", logx.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
