package dbus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// ClientGoneHandler is called when a unique bus name disappears.
type ClientGoneHandler func(client model.ClientID)

// MirrorHandler is called for each Notify call observed on the bus.
type MirrorHandler func(n *DBusNotification)

// Monitor watches the bus. It follows clients leaving the bus so their
// registrations can be dropped, and can passively observe another
// notification daemon's traffic to mirror it onto the overlay.
type Monitor struct {
	logger *slog.Logger

	conn       *dbus.Conn
	mirrorConn *dbus.Conn
	signals    chan *dbus.Signal

	onClientGone ClientGoneHandler
	onNotify     MirrorHandler

	stopOnce sync.Once
}

// NewMonitor creates a new bus monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
	}
}

// SetClientGoneHandler sets the callback for clients leaving the bus.
func (m *Monitor) SetClientGoneHandler(handler ClientGoneHandler) {
	m.onClientGone = handler
}

// SetNotifyHandler sets the callback for mirrored notifications.
func (m *Monitor) SetNotifyHandler(handler MirrorHandler) {
	m.onNotify = handler
}

// WatchClients subscribes to NameOwnerChanged on conn.
func (m *Monitor) WatchClients(conn *dbus.Conn) error {
	m.conn = conn

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return fmt.Errorf("failed to watch bus clients: %w", err)
	}

	m.signals = make(chan *dbus.Signal, 32)
	conn.Signal(m.signals)
	go m.processSignals()

	m.logger.Debug("watching bus clients")
	return nil
}

func (m *Monitor) processSignals() {
	for sig := range m.signals {
		if sig.Name != "org.freedesktop.DBus.NameOwnerChanged" {
			continue
		}
		if client, ok := clientGone(sig.Body); ok && m.onClientGone != nil {
			m.onClientGone(client)
		}
	}
}

// clientGone reports the unique name released by a NameOwnerChanged body.
func clientGone(body []interface{}) (model.ClientID, bool) {
	if len(body) < 3 {
		return "", false
	}
	name, ok1 := body[0].(string)
	newOwner, ok2 := body[2].(string)
	if !ok1 || !ok2 || newOwner != "" || !strings.HasPrefix(name, ":") {
		return "", false
	}
	return model.ClientID(name), true
}

// Mirror begins observing Notify calls addressed to another notification
// daemon, on a private connection.
func (m *Monitor) Mirror() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.mirrorConn = conn

	rules := []string{
		"type='method_call',interface='org.freedesktop.Notifications',member='Notify'",
	}
	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		rules,
		uint32(0),
	).Err
	if err != nil {
		// older buses only support eavesdropping match rules
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		err = conn.BusObject().Call(
			"org.freedesktop.DBus.AddMatch",
			0,
			rules[0]+",eavesdrop='true'",
		).Err
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
		}
	}

	m.logger.Info("mirroring notifications from the bus")
	go m.processMessages()
	return nil
}

func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.mirrorConn.Eavesdrop(ch)

	for msg := range ch {
		if msg.Type != dbus.TypeMethodCall {
			continue
		}
		if iface, ok := msg.Headers[dbus.FieldInterface]; !ok || iface.Value() != DBusInterface {
			continue
		}
		if member, ok := msg.Headers[dbus.FieldMember]; !ok || member.Value() != "Notify" {
			continue
		}

		n, err := parseNotify(msg.Body)
		if err != nil {
			m.logger.Warn("malformed Notify call", "error", err)
			continue
		}
		m.logger.Debug("mirrored notification", "app", n.AppName, "summary", n.Summary)
		if m.onNotify != nil {
			m.onNotify(n)
		}
	}
}

// parseNotify decodes the body of a Notify(susssasa{sv}i) call.
func parseNotify(body []interface{}) (*DBusNotification, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("Notify body has %d arguments, want 8", len(body))
	}

	n := &DBusNotification{}
	var ok bool
	if n.AppName, ok = body[0].(string); !ok {
		return nil, fmt.Errorf("invalid app_name type")
	}
	if n.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, fmt.Errorf("invalid replaces_id type")
	}
	if n.AppIcon, ok = body[2].(string); !ok {
		return nil, fmt.Errorf("invalid app_icon type")
	}
	if n.Summary, ok = body[3].(string); !ok {
		return nil, fmt.Errorf("invalid summary type")
	}
	if n.Body, ok = body[4].(string); !ok {
		return nil, fmt.Errorf("invalid body type")
	}
	n.Actions, _ = body[5].([]string)
	n.Hints, _ = body[6].(map[string]dbus.Variant)
	if timeout, ok := body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}
	return n, nil
}

// Stop stops watching. The shared connection stays open.
func (m *Monitor) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		if m.conn != nil && m.signals != nil {
			m.conn.RemoveSignal(m.signals)
			close(m.signals)
		}
		if m.mirrorConn != nil {
			err = m.mirrorConn.Close()
		}
	})
	return err
}
