// Package app wires configuration, storage, sources, sinks and monitors
// into one runnable process.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dropwatch/internal/config"
	"dropwatch/internal/monitor"
	"dropwatch/internal/notify"
	"dropwatch/internal/runtime/supervisor"
	"dropwatch/internal/source"
	"dropwatch/internal/store"
	logx "dropwatch/pkg/logx"
)

const stopTimeout = 10 * time.Second

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	st       store.Store
	notif    *notify.Service
	monitors []*monitor.Monitor
}

// New loads and validates the config and constructs every component.
// A store that cannot be opened is the one fatal startup condition.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		return c.Validate()
	})

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, logSvc.Logger().With(logx.String("comp", "store")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Info("store opened", logx.String("driver", cfg.Storage.Driver), logx.String("path", cfg.Storage.Path))

	notif, err := buildNotifier(cfg, logSvc.Logger())
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &App{cfgm: cfgm, log: log, logs: logSvc, st: st, notif: notif}

	for i := range cfg.Monitors {
		m, err := a.buildMonitor(&cfg.Monitors[i])
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.monitors = append(a.monitors, m)
	}
	return a, nil
}

func buildNotifier(cfg *config.Config, log logx.Logger) (*notify.Service, error) {
	sinks := []notify.Sink{}

	dcTimeout, err := config.ParseDurationField("notify.discord.timeout", cfg.Notify.Discord.Timeout)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, notify.NewDiscord(notify.DiscordConfig{
		WebhookURL: cfg.Notify.Discord.WebhookURL,
		Username:   cfg.Notify.Discord.Username,
		AvatarURL:  cfg.Notify.Discord.AvatarURL,
		FooterText: cfg.Notify.Discord.FooterText,
		FooterIcon: cfg.Notify.Discord.FooterIcon,
		Timeout:    dcTimeout,
	}, log.With(logx.String("comp", "discord"))))

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			// Notifications are best-effort; a broken Telegram setup should
			// not keep the monitors from running.
			log.Warn("telegram sink disabled", logx.Err(err))
		} else {
			sinks = append(sinks, tg)
		}
	}

	return notify.New(cfg.Notify.RatePerSec, log.With(logx.String("comp", "notify")), sinks...), nil
}

func (a *App) buildMonitor(mc *config.MonitorConfig) (*monitor.Monitor, error) {
	sched, err := monitor.NewSchedule(mc.Schedule)
	if err != nil {
		return nil, fmt.Errorf("monitor %q: %w", mc.Name, err)
	}
	timeout, err := config.ParseDurationField("monitors.timeout", mc.Timeout)
	if err != nil {
		return nil, fmt.Errorf("monitor %q: %w", mc.Name, err)
	}

	srcLog := a.logs.Logger().With(
		logx.String("comp", "source"),
		logx.String("monitor", mc.Name),
	)

	var src source.Source
	switch strings.ToLower(strings.TrimSpace(mc.Kind)) {
	case "shopify":
		src = source.NewShopify(source.ShopifyConfig{
			Name:    mc.Name,
			BaseURL: mc.BaseURL,
			Timeout: timeout,
		}, srcLog)
	case "cdnprobe":
		src = source.NewProbe(source.ProbeConfig{
			Name:        mc.Name,
			URLTemplate: mc.URLTemplate,
			StartID:     mc.StartID,
			EndID:       mc.EndID,
			Timeout:     timeout,
			RatePerSec:  mc.RatePerSec,
		}, srcLog)
	default:
		return nil, fmt.Errorf("monitor %q: unknown kind %q", mc.Name, mc.Kind)
	}

	return monitor.New(monitor.Config{
		Name:      mc.Name,
		Namespace: mc.StoreNamespace(),
		Schedule:  sched,
		Source:    src,
		Store:     a.st,
		Notifier:  a.notif,
		Meta: notify.Meta{
			Monitor:   mc.Name,
			Website:   mc.Website,
			Probe:     strings.EqualFold(strings.TrimSpace(mc.Kind), "cdnprobe"),
			FullImage: mc.FullImage,
		},
		Log: a.logs.Logger().With(logx.String("comp", "monitor")),
	}), nil
}

// Start launches the monitors, the config watcher and the systemd
// integration under one supervisor.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.logs.Logger().With(logx.String("comp", "supervisor"))))

	for _, m := range a.monitors {
		m := m
		a.sup.Go("monitor:"+m.Name(), m.Run)
	}

	a.sup.Go("config-watch", a.cfgm.Watch)
	a.sup.Go("config-apply", a.applyLoop)
	a.sup.Go("sd-watchdog", a.watchdogLoop)

	a.notifyReady()
	a.log.Info("dropwatch running", logx.Int("monitors", len(a.monitors)))
	return nil
}

// applyLoop reacts to validated config reloads. Logging changes apply live;
// everything that shapes monitors or storage needs a restart, which we only
// announce.
func (a *App) applyLoop(ctx context.Context) error {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)

	prev := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return nil
			}
			a.logs.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			a.log.Info("logging config applied")

			if prev != nil && runtimeSectionsChanged(prev, cfg) {
				a.log.Warn("monitor/storage/notify config changed; restart to apply")
			}
			prev = cfg
		}
	}
}

// runtimeSectionsChanged reports whether the reload touched sections that
// are only read at startup.
func runtimeSectionsChanged(a, b *config.Config) bool {
	type sections struct {
		Storage  config.StorageConfig
		Notify   config.NotifyConfig
		Monitors []config.MonitorConfig
	}
	ja, err1 := json.Marshal(sections{a.Storage, a.Notify, a.Monitors})
	jb, err2 := json.Marshal(sections{b.Storage, b.Notify, b.Monitors})
	if err1 != nil || err2 != nil {
		return true
	}
	return string(ja) != string(jb)
}

// Stop winds everything down: supervisor first, then the store and log sinks.
func (a *App) Stop(ctx context.Context) error {
	_ = ctx
	a.notifyStopping()

	if a.sup != nil {
		a.sup.Stop(stopTimeout)
	}
	if a.st != nil {
		_ = a.st.Close()
	}
	a.log.Info("dropwatch stopped")
	_ = a.logs.Close()
	return nil
}
