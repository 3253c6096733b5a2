package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages.
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages.
	NotificationLevelWarning
	// NotificationLevelError is for error messages.
	NotificationLevelError
)

// Queuer accepts notifications for display.
type Queuer interface {
	Queue(n *model.Notification) bool
}

// InternalNotifier shows notifications about overlayd's own events on the
// overlay. Repeats of the same key are rate limited.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	queue  Queuer

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	duration       int

	enabled bool
}

// NewInternalNotifier creates a notifier that queues into q.
func NewInternalNotifier(q Queuer, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		queue:          q,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		duration:       5,
		enabled:        true,
	}
}

// SetEnabled enables or disables internal notifications.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify queues an internal notification unless the key was used within the
// minimum interval. It reports whether the notification was queued.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) bool {
	n.mu.Lock()
	if !n.enabled || n.queue == nil {
		n.mu.Unlock()
		return false
	}
	if lastTime, ok := n.lastNotifyTime[key]; ok && time.Since(lastTime) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
		return false
	}
	n.lastNotifyTime[key] = time.Now()
	q, duration := n.queue, n.duration
	n.mu.Unlock()

	typ := model.TypeInfo
	switch level {
	case NotificationLevelWarning:
		typ = model.TypeWarning
	case NotificationLevelError:
		typ = model.TypeError
	}

	notification := model.NewNotification(typ, summary)
	notification.Duration = duration
	if body != "" {
		notification.SetMeta(model.MetaAlbum, body)
	}
	notification.SetMeta(model.MetaArtist, "overlayd")

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)
	return q.Queue(notification)
}

// NotifyConfigReloaded reports a successful config reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration Reloaded", "", NotificationLevelInfo)
}

// NotifyConfigError reports a config file that failed validation.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration Error", err.Error(), NotificationLevelWarning)
}

// NotifyLayoutsReloaded reports that layout definitions were reloaded.
func (n *InternalNotifier) NotifyLayoutsReloaded() {
	n.Notify("layout-reload", "Layouts Reloaded", "", NotificationLevelInfo)
}

// NotifyThemeReloaded reports a theme reload.
func (n *InternalNotifier) NotifyThemeReloaded(themeName string) {
	n.Notify("theme-reload", "Theme Reloaded", themeName, NotificationLevelInfo)
}

// NotifyThemeError reports a theme that failed to load.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify("theme-error", "Theme Error", err.Error(), NotificationLevelWarning)
}

// NotifyAudioError reports a sound that failed to play.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify("audio-error", "Audio Error", err.Error(), NotificationLevelWarning)
}

// NotifyBusError reports a D-Bus service that could not be started.
func (n *InternalNotifier) NotifyBusError(err error) {
	n.Notify("bus-error", "D-Bus Error", err.Error(), NotificationLevelError)
}

// NotifyStartup announces that the daemon is ready.
func (n *InternalNotifier) NotifyStartup(version string) {
	n.Notify("startup", "overlayd started", version, NotificationLevelInfo)
}
