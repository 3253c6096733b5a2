package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

const (
	// DBusInterface is the notification interface name.
	DBusInterface = "org.freedesktop.Notifications"
	// DBusPath is the notification object path.
	DBusPath = "/org/freedesktop/Notifications"
	// DBusBusName is the bus name to claim.
	DBusBusName = "org.freedesktop.Notifications"
)

// FreedesktopClient is the client handle freedesktop notifications are
// registered under.
const FreedesktopClient model.ClientID = "org.freedesktop.Notifications"

// Center is the part of the notification center the bus services drive.
// All methods are safe to call from any goroutine.
type Center interface {
	Queue(n *model.Notification) bool
	Register(client model.ClientID) int
	UnRegister(client model.ClientID, id int, closeNow bool)
	RegisteredIDs(client model.ClientID) []int
	Snapshot() []center.ScreenInfo
}

// QueueHandler is called after a notification was handed to the center.
type QueueHandler func(source *DBusNotification, n *model.Notification)

// NotificationServer implements the org.freedesktop.Notifications D-Bus
// interface on top of the notification center. Every notification gets its
// own registered id, which doubles as the freedesktop notification id.
type NotificationServer struct {
	conn   *dbus.Conn
	center Center
	logger *slog.Logger

	opts    MapOptions
	onQueue QueueHandler

	mu         sync.RWMutex
	activeIDs  map[uint32]bool
	serverInfo ServerInfo
	running    bool
}

var _ center.Observer = (*NotificationServer)(nil)

// NewNotificationServer creates a new NotificationServer feeding c.
func NewNotificationServer(c Center, opts MapOptions, logger *slog.Logger) *NotificationServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationServer{
		center:     c,
		logger:     logger,
		opts:       opts,
		activeIDs:  make(map[uint32]bool),
		serverInfo: DefaultServerInfo(),
	}
}

// SetQueueHandler sets the handler called after each queued notification.
func (s *NotificationServer) SetQueueHandler(handler QueueHandler) {
	s.onQueue = handler
}

// SetServerInfo sets the server information returned by GetServerInformation.
func (s *NotificationServer) SetServerInfo(info ServerInfo) {
	s.serverInfo = info
}

// SetMapOptions replaces the mapping options, e.g. after a config reload.
func (s *NotificationServer) SetMapOptions(opts MapOptions) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

// Start exports the notification service on conn and claims the bus name.
func (s *NotificationServer) Start(conn *dbus.Conn) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	s.conn = conn
	if err := notificationService.export(conn, s); err != nil {
		return err
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus notification server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name and drops every registration.
func (s *NotificationServer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	clear(s.activeIDs)
	s.mu.Unlock()

	for _, id := range s.center.RegisteredIDs(FreedesktopClient) {
		s.center.UnRegister(FreedesktopClient, id, true)
	}

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus notification server stopped")
	return nil
}

// GetCapabilities returns the list of capabilities supported by this server.
// D-Bus method: GetCapabilities() -> as
func (s *NotificationServer) GetCapabilities() ([]string, *dbus.Error) {
	s.logger.Debug("GetCapabilities called")
	return ServerCapabilities, nil
}

// GetServerInformation returns information about the notification server.
// D-Bus method: GetServerInformation() -> (ssss)
func (s *NotificationServer) GetServerInformation() (string, string, string, string, *dbus.Error) {
	s.logger.Debug("GetServerInformation called")
	return s.serverInfo.Name, s.serverInfo.Vendor, s.serverInfo.Version, s.serverInfo.SpecVersion, nil
}

// Notify handles incoming notification requests.
// D-Bus method: Notify(susssasa{sv}i) -> u
func (s *NotificationServer) Notify(
	appName string,
	replacesID uint32,
	appIcon string,
	summary string,
	body string,
	actions []string,
	hints map[string]dbus.Variant,
	expireTimeout int32,
) (uint32, *dbus.Error) {
	id, err := s.Submit(&DBusNotification{
		AppName:       appName,
		ReplacesID:    replacesID,
		AppIcon:       appIcon,
		Summary:       summary,
		Body:          body,
		Actions:       actions,
		Hints:         hints,
		ExpireTimeout: expireTimeout,
	})
	if err != nil {
		return 0, dbus.MakeFailedError(err)
	}
	return id, nil
}

// Submit queues a freedesktop notification and returns its id. A replaces
// id naming a live notification updates that notification's screen.
func (s *NotificationServer) Submit(dn *DBusNotification) (uint32, error) {
	s.mu.RLock()
	opts := s.opts
	replace := dn.ReplacesID > 0 && s.activeIDs[dn.ReplacesID]
	s.mu.RUnlock()

	var id int
	if replace {
		id = int(dn.ReplacesID)
	} else {
		id = s.center.Register(FreedesktopClient)
		if id < 0 {
			return 0, fmt.Errorf("notification center is closed")
		}
	}

	s.logger.Debug("Notify called",
		"app_name", dn.AppName,
		"replaces_id", dn.ReplacesID,
		"summary", dn.Summary,
		"id", id,
	)

	n := dn.ToNotification(opts)
	n.ID = id
	n.Client = FreedesktopClient

	s.mu.Lock()
	s.activeIDs[uint32(id)] = true
	s.mu.Unlock()

	if !s.center.Queue(n) {
		s.release(uint32(id), true)
		return 0, fmt.Errorf("notification %d was refused", id)
	}

	if s.onQueue != nil {
		s.onQueue(dn, n)
	}
	return uint32(id), nil
}

// CloseNotification closes a notification by ID.
// D-Bus method: CloseNotification(u) -> nothing
func (s *NotificationServer) CloseNotification(id uint32) *dbus.Error {
	s.logger.Debug("CloseNotification called", "id", id)

	if s.release(id, true) {
		if err := s.EmitNotificationClosed(id, CloseReasonClosed); err != nil {
			s.logger.Warn("failed to emit NotificationClosed signal", "id", id, "error", err)
		}
	}
	return nil
}

// release forgets id and gives its registration back to the center.
func (s *NotificationServer) release(id uint32, closeNow bool) bool {
	s.mu.Lock()
	exists := s.activeIDs[id]
	delete(s.activeIDs, id)
	s.mu.Unlock()

	if exists {
		s.center.UnRegister(FreedesktopClient, int(id), closeNow)
	}
	return exists
}

// IsActive returns true if the notification ID is currently active.
func (s *NotificationServer) IsActive(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeIDs[id]
}

// NotificationShown implements center.Observer.
func (s *NotificationServer) NotificationShown(context.Context, *model.Notification, bool) {}

// ScreenClosed implements center.Observer. Freedesktop notifications do not
// come back once their screen is gone, so the id is released and the close
// is announced.
func (s *NotificationServer) ScreenClosed(_ context.Context, id int, _ bool) {
	if id <= 0 || !s.release(uint32(id), false) {
		return
	}
	if err := s.EmitNotificationClosed(uint32(id), CloseReasonExpired); err != nil {
		s.logger.Debug("failed to emit NotificationClosed signal", "id", id, "error", err)
	}
}

// notificationService is the freedesktop notification service overlayd
// can replace.
var notificationService = service{
	path:     DBusPath,
	iface:    DBusInterface,
	busName:  DBusBusName,
	flags:    dbus.NameFlagDoNotQueue | dbus.NameFlagReplaceExisting,
	describe: "notification service",
	methods: []introspect.Method{
		method("GetCapabilities", "->", "capabilities:as"),
		method("GetServerInformation", "->", "name:s", "vendor:s", "version:s", "spec_version:s"),
		method("Notify", "app_name:s", "replaces_id:u", "app_icon:s", "summary:s", "body:s",
			"actions:as", "hints:a{sv}", "expire_timeout:i", "->", "id:u"),
		method("CloseNotification", "id:u"),
	},
	signals: []introspect.Signal{
		signal("NotificationClosed", "id:u", "reason:u"),
	},
}
