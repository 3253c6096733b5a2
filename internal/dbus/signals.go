package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// EmitNotificationClosed emits the NotificationClosed signal.
// This signal is emitted when a notification is closed, either by timeout
// or explicit close request.
func (s *NotificationServer) EmitNotificationClosed(id uint32, reason CloseReason) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+".NotificationClosed", id, uint32(reason))
	if err != nil {
		return fmt.Errorf("failed to emit NotificationClosed signal: %w", err)
	}

	s.logger.Debug("emitted NotificationClosed signal", "id", id, "reason", reason.String())
	return nil
}

// Connection returns the underlying D-Bus connection.
func (s *NotificationServer) Connection() *dbus.Conn {
	return s.conn
}

// EmitScreenClosed emits the ScreenClosed signal for a registered id.
func (s *OverlayServer) EmitScreenClosed(id int, suspended bool) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(OverlayPath, OverlayInterface+".ScreenClosed", int32(id), suspended)
	if err != nil {
		return fmt.Errorf("failed to emit ScreenClosed signal: %w", err)
	}

	s.logger.Debug("emitted ScreenClosed signal", "id", id, "suspended", suspended)
	return nil
}

// EmitDialogCompleted emits the DialogCompleted signal.
func (s *OverlayServer) EmitDialogCompleted(resultID string, result int, text string) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(OverlayPath, OverlayInterface+".DialogCompleted", resultID, int32(result), text)
	if err != nil {
		return fmt.Errorf("failed to emit DialogCompleted signal: %w", err)
	}

	s.logger.Debug("emitted DialogCompleted signal", "result_id", resultID, "result", result)
	return nil
}
