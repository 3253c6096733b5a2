package daemon

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/tvoverlay/internal/adapter/mpris"
	"github.com/jmylchreest/tvoverlay/internal/audio"
	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/dbus"
	"github.com/jmylchreest/tvoverlay/internal/dialog"
	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/store"
)

// ErrNoHost is returned by New without a UI host.
var ErrNoHost = errors.New("daemon needs a UI host")

// Options configures a Daemon.
type Options struct {
	Config     *config.DaemonConfig
	ConfigPath string // empty = default path
	Host       Host
	Logger     *slog.Logger
	Version    string

	// Conn is the session bus connection. When nil and the bus is enabled,
	// Start connects to the session bus.
	Conn *godbus.Conn
}

// Daemon is a running overlayd instance.
type Daemon struct {
	logger     *slog.Logger
	host       Host
	version    string
	configPath string

	mu  sync.RWMutex
	cfg *config.DaemonConfig

	loader   *layout.Loader
	center   *center.Center
	notifier *InternalNotifier
	audio    *audio.Manager

	journal  *store.Store
	recorder *store.Recorder

	conn          *godbus.Conn
	ownConn       bool
	notifications *dbus.NotificationServer
	overlays      *dbus.OverlayServer
	monitor       *dbus.Monitor

	nowPlaying *mpris.Adapter

	configWatcher *ConfigWatcher
	layoutWatcher *DirWatcher

	stopOnce sync.Once
}

// New builds the notification center on opts.Host and the components
// attached to it. Nothing runs until Start.
func New(opts Options) (*Daemon, error) {
	if opts.Host == nil {
		return nil, ErrNoHost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}

	d := &Daemon{
		logger:     logger,
		host:       opts.Host,
		version:    opts.Version,
		configPath: opts.ConfigPath,
		cfg:        cfg,
		conn:       opts.Conn,
	}

	d.loader = layout.NewLoader(cfg.LayoutDir())
	d.center = center.New(center.Options{
		Owner:      opts.Host.Owner(),
		Dispatcher: opts.Host,
		Resolver:   d.loader,
		Presenter:  opts.Host.Presenter(),
		Logger:     logger.With("component", "center"),
	})
	opts.Host.Attach(d.center)

	d.notifier = NewInternalNotifier(d.center, logger)
	if th, ok := opts.Host.(ThemeHost); ok {
		th.SetThemeCallbacks(d.notifier.NotifyThemeReloaded, d.notifier.NotifyThemeError)
	}

	d.audio = audio.NewManager(cfg, logger.With("component", "audio"))
	d.audio.SetErrorCallback(d.notifier.NotifyAudioError)
	d.center.AddObserver(d.audio)

	if cfg.Journal.Enabled {
		p, err := store.NewJSONLPersistence(cfg.JournalPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		d.journal = store.NewStore(p)
		d.recorder = store.NewRecorder(d.journal, logger.With("component", "journal"))
		d.center.AddObserver(d.recorder)
	}

	return d, nil
}

// Center returns the notification center.
func (d *Daemon) Center() *center.Center {
	return d.center
}

// Config returns the configuration in effect.
func (d *Daemon) Config() *config.DaemonConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Start starts the producers and watchers. A bus service that cannot start
// is reported on the overlay but does not stop the daemon.
func (d *Daemon) Start(ctx context.Context) error {
	cfg := d.Config()

	if err := d.audio.Start(ctx); err != nil {
		d.logger.Warn("some sounds failed to load", "error", err)
	}

	if cfg.DBus.Enabled {
		if err := d.startBus(cfg); err != nil {
			return err
		}
	}

	if cfg.MPRIS.Enabled {
		if d.conn == nil {
			d.logger.Warn("now-playing needs the session bus, skipping")
		} else {
			d.nowPlaying = mpris.New(d.center, mpris.NewBusSource(d.conn, cfg.MPRIS.Player), mpris.Options{
				PollInterval: cfg.MPRIS.PollInterval.Duration(),
				Duration:     cfg.MPRIS.Duration.Duration(),
				Logger:       d.logger,
			})
			if err := d.nowPlaying.Start(ctx); err != nil {
				d.logger.Warn("failed to start now-playing adapter", "error", err)
				d.nowPlaying = nil
			}
		}
	}

	d.configWatcher = NewConfigWatcher(d.configPath, cfg, d.logger)
	d.configWatcher.SetReloadCallback(func(next *config.DaemonConfig) {
		d.applyConfig(ctx, next)
	})
	d.configWatcher.SetErrorCallback(d.notifier.NotifyConfigError)
	if err := d.configWatcher.Start(ctx); err != nil {
		d.logger.Warn("failed to watch config file", "error", err)
	}

	if cfg.Layout.Watch {
		d.layoutWatcher = NewDirWatcher([]string{d.loader.Dir()}, []string{".xml"}, d.logger)
		d.layoutWatcher.SetChangeCallback(d.reloadLayouts)
		if err := d.layoutWatcher.Start(ctx); err != nil {
			d.logger.Debug("layout directory not watched", "dir", d.loader.Dir(), "error", err)
			d.layoutWatcher = nil
		}
	}

	d.notifier.NotifyStartup(d.version)
	d.logger.Info("overlayd started", "version", d.version)
	return nil
}

func (d *Daemon) startBus(cfg *config.DaemonConfig) error {
	if d.conn == nil {
		conn, err := godbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		d.conn = conn
		d.ownConn = true
	}

	d.overlays = dbus.NewOverlayServer(d.center, d.logger.With("component", "overlay-bus"))
	d.overlays.SetDialogHandler(d.ShowDialog)
	if err := d.overlays.Start(d.conn); err != nil {
		d.logger.Error("failed to start overlay bus service", "error", err)
		d.notifier.NotifyBusError(err)
		d.overlays = nil
	} else {
		d.center.AddObserver(d.overlays)
	}

	d.monitor = dbus.NewMonitor(d.logger.With("component", "bus-monitor"))
	if d.overlays != nil {
		d.monitor.SetClientGoneHandler(d.overlays.ClientGone)
		if err := d.monitor.WatchClients(d.conn); err != nil {
			d.logger.Warn("failed to watch bus clients", "error", err)
		}
	}

	opts := mapOptions(cfg)
	if cfg.DBus.ClaimFreedesktop {
		d.notifications = dbus.NewNotificationServer(d.center, opts, d.logger.With("component", "notifications"))
		info := dbus.DefaultServerInfo()
		if d.version != "" {
			info.Version = d.version
		}
		d.notifications.SetServerInfo(info)
		if err := d.notifications.Start(d.conn); err != nil {
			d.logger.Error("failed to claim org.freedesktop.Notifications", "error", err)
			d.notifier.NotifyBusError(err)
			d.notifications = nil
		} else {
			d.center.AddObserver(d.notifications)
		}
	}

	if d.notifications == nil && cfg.DBus.Mirror {
		d.monitor.SetNotifyHandler(func(n *dbus.DBusNotification) {
			d.mu.RLock()
			opts := mapOptions(d.cfg)
			d.mu.RUnlock()
			d.center.Queue(n.ToNotification(opts))
		})
		if err := d.monitor.Mirror(); err != nil {
			d.logger.Warn("failed to mirror notifications", "error", err)
			d.notifier.NotifyBusError(err)
		}
	}
	return nil
}

func mapOptions(cfg *config.DaemonConfig) dbus.MapOptions {
	return dbus.MapOptions{
		DefaultDuration:    cfg.Notifications.DefaultDuration.Seconds(),
		CriticalPersistent: cfg.Notifications.CriticalPersistent,
	}
}

// applyConfig takes over a reloaded configuration. Settings that need a
// restart (host backend, bus names) keep their old values until then.
func (d *Daemon) applyConfig(ctx context.Context, next *config.DaemonConfig) {
	d.mu.Lock()
	prev := d.cfg
	d.cfg = next
	d.mu.Unlock()

	d.audio.UpdateConfig(ctx, next)
	if ch, ok := d.host.(ConfigurableHost); ok {
		ch.UpdateConfig(next)
	}
	if d.notifications != nil {
		d.notifications.SetMapOptions(mapOptions(next))
	}
	if prev.Host.Backend != next.Host.Backend || prev.DBus != next.DBus {
		d.logger.Info("host and bus settings take effect after a restart")
	}
	d.notifier.NotifyConfigReloaded()
}

// reloadLayouts rebuilds every screen from the layout files.
func (d *Daemon) reloadLayouts() {
	d.logger.Info("layouts changed, reloading screens", "dir", d.loader.Dir())
	d.host.Dispatch(d.center.Reload)
	d.notifier.NotifyLayoutsReloaded()
}

// ShowDialog opens a dialog on the overlay. done is called with the chosen
// button index, or -1 when the dialog is cancelled or cannot be shown. It
// is safe to call from any goroutine.
func (d *Daemon) ShowDialog(text string, buttons []string, done func(resultID string, result int, text string)) (string, error) {
	resultID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()

	d.host.Dispatch(func(ctx context.Context) {
		box := dialog.New(text, dialog.Options{
			Dispatcher: d.host,
			Popper:     d.center,
			Logger:     d.logger.With("component", "dialog"),
		})
		if err := box.Create(d.loader); err != nil {
			d.logger.Error("failed to create dialog", "error", err)
			done(resultID, -1, "")
			return
		}
		for _, b := range buttons {
			box.AddButton(b, nil)
		}
		box.SetReturn(dialog.TargetFunc(func(_ context.Context, c dialog.Completion) {
			done(c.ResultID, c.Result, c.Text)
		}), resultID)

		if !d.center.Push(ctx, box) {
			done(resultID, -1, "")
		}
	})
	return resultID, nil
}

// Run starts the daemon, drives the host until ctx is cancelled, then shuts
// everything down.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		d.Stop()
		return err
	}
	err := d.host.Run(ctx, d.center.Close)
	d.Stop()
	return err
}

// Stop stops the producers first, then the observers, then closes the bus
// connection. It is safe to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		if d.layoutWatcher != nil {
			d.layoutWatcher.Stop()
		}
		if d.configWatcher != nil {
			d.configWatcher.Stop()
		}
		if d.nowPlaying != nil {
			d.nowPlaying.Stop()
		}
		if d.monitor != nil {
			if err := d.monitor.Stop(); err != nil {
				d.logger.Debug("failed to stop bus monitor", "error", err)
			}
		}
		if d.notifications != nil {
			if err := d.notifications.Stop(); err != nil {
				d.logger.Debug("failed to stop notification server", "error", err)
			}
		}
		if d.overlays != nil {
			if err := d.overlays.Stop(); err != nil {
				d.logger.Debug("failed to stop overlay server", "error", err)
			}
		}

		d.audio.Stop()
		if d.recorder != nil {
			d.recorder.Close()
		}
		if d.journal != nil {
			if err := d.journal.Close(); err != nil {
				d.logger.Warn("failed to close journal", "error", err)
			}
		}

		if d.conn != nil && d.ownConn {
			_ = d.conn.Close()
		}
		d.logger.Info("overlayd stopped")
	})
}
