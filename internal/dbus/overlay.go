package dbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

const (
	// OverlayInterface is the overlay control interface name.
	OverlayInterface = "io.github.jmylchreest.TVOverlay1"
	// OverlayPath is the overlay object path.
	OverlayPath = "/io/github/jmylchreest/TVOverlay"
	// OverlayBusName is the bus name overlayd claims.
	OverlayBusName = "io.github.jmylchreest.TVOverlay"
)

// Queue option keys.
const (
	OptionProgress     = "progress"      // d, 0..1
	OptionProgressText = "progress-text" // s
	OptionStyle        = "style"         // s
	OptionFullscreen   = "fullscreen"    // b
	OptionImagePath    = "image-path"    // s
	OptionImageData    = "image-data"    // ay, encoded image file
)

// DialogHandler shows a dialog and reports the outcome through done, which
// may be called from any goroutine. It returns the dialog's result id.
type DialogHandler func(text string, buttons []string, done func(resultID string, result int, text string)) (string, error)

// ScreenRecord is the wire form of center.ScreenInfo.
// D-Bus signature: (sstiiibsa{ss}dsx)
type ScreenRecord struct {
	Kind         string
	Name         string
	Handle       uint64
	ID           int32
	Rank         int32
	Y            int32
	Fullscreen   bool
	Style        string
	Metadata     map[string]string
	Progress     float64
	ProgressText string
	Expiry       int64 // unix milliseconds, 0 = none
}

// NewScreenRecord converts a screen description to its wire form.
func NewScreenRecord(info center.ScreenInfo) ScreenRecord {
	r := ScreenRecord{
		Kind:         info.Kind,
		Name:         info.Name,
		Handle:       info.Handle,
		ID:           int32(info.ID),
		Rank:         int32(info.Rank),
		Y:            int32(info.Y),
		Fullscreen:   info.Fullscreen,
		Style:        info.Style,
		Metadata:     info.Metadata,
		Progress:     info.Progress,
		ProgressText: info.ProgressText,
	}
	if r.Metadata == nil {
		r.Metadata = map[string]string{}
	}
	if !info.Expiry.IsZero() {
		r.Expiry = info.Expiry.UnixMilli()
	}
	return r
}

// Info converts the record back to a screen description.
func (r ScreenRecord) Info() center.ScreenInfo {
	info := center.ScreenInfo{
		Kind:         r.Kind,
		Name:         r.Name,
		Handle:       r.Handle,
		ID:           int(r.ID),
		Rank:         int(r.Rank),
		Y:            int(r.Y),
		Fullscreen:   r.Fullscreen,
		Style:        r.Style,
		Metadata:     r.Metadata,
		Progress:     r.Progress,
		ProgressText: r.ProgressText,
	}
	if r.Expiry != 0 {
		info.Expiry = time.UnixMilli(r.Expiry)
	}
	return info
}

// BuildNotification assembles a notification from Queue arguments.
func BuildNotification(client model.ClientID, id int32, typ string, duration int32, metadata map[string]string, options map[string]dbus.Variant) (*model.Notification, error) {
	t, err := model.ParseType(typ)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		ID:       int(id),
		Client:   client,
		Type:     t,
		Duration: int(duration),
	}
	for k, v := range metadata {
		n.SetMeta(k, v)
	}

	if v, ok := options[OptionProgress]; ok {
		p, ok := v.Value().(float64)
		if !ok {
			return nil, fmt.Errorf("option %s must be a double", OptionProgress)
		}
		text := ""
		if tv, ok := options[OptionProgressText]; ok {
			text, _ = tv.Value().(string)
		}
		n.SetProgress(p, text)
	}
	if v, ok := options[OptionStyle]; ok {
		n.Style, _ = v.Value().(string)
	}
	if v, ok := options[OptionFullscreen]; ok {
		n.Fullscreen, _ = v.Value().(bool)
	}
	if v, ok := options[OptionImageData]; ok {
		if data, ok := v.Value().([]byte); ok && len(data) > 0 {
			n.Artwork = &model.Artwork{Image: data}
		}
	} else if v, ok := options[OptionImagePath]; ok {
		if path, ok := v.Value().(string); ok && path != "" {
			n.Artwork = &model.Artwork{Path: path}
		}
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// OverlayServer exposes the notification center's client API on the
// session bus. The caller's unique bus name is its client handle.
type OverlayServer struct {
	conn   *dbus.Conn
	center Center
	logger *slog.Logger

	dialogs DialogHandler

	mu      sync.Mutex
	clients map[model.ClientID]struct{}
	running bool
}

var _ center.Observer = (*OverlayServer)(nil)

// NewOverlayServer creates a new OverlayServer feeding c.
func NewOverlayServer(c Center, logger *slog.Logger) *OverlayServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverlayServer{
		center:  c,
		logger:  logger,
		clients: make(map[model.ClientID]struct{}),
	}
}

// SetDialogHandler sets the handler used by the Dialog method.
func (s *OverlayServer) SetDialogHandler(handler DialogHandler) {
	s.dialogs = handler
}

// Start exports the overlay interface on conn and claims its bus name.
func (s *OverlayServer) Start(conn *dbus.Conn) error {
	s.conn = conn
	if err := overlayService.export(conn, s); err != nil {
		return err
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus overlay server started", "interface", OverlayInterface, "path", OverlayPath)
	return nil
}

// Stop releases the bus name.
func (s *OverlayServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	if s.conn != nil {
		if _, err := s.conn.ReleaseName(OverlayBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
	}
	s.logger.Info("D-Bus overlay server stopped")
	return nil
}

// RegisterClient allocates an id for the caller.
// D-Bus method: Register() -> i
func (s *OverlayServer) RegisterClient(sender dbus.Sender) (int32, *dbus.Error) {
	client := model.ClientID(sender)
	id := s.center.Register(client)
	if id > 0 {
		s.mu.Lock()
		s.clients[client] = struct{}{}
		s.mu.Unlock()
	}
	s.logger.Debug("Register called", "client", client, "id", id)
	return int32(id), nil
}

// UnRegisterClient releases one of the caller's ids.
// D-Bus method: UnRegister(ib) -> nothing
func (s *OverlayServer) UnRegisterClient(sender dbus.Sender, id int32, closeNow bool) *dbus.Error {
	s.logger.Debug("UnRegister called", "client", sender, "id", id, "close", closeNow)
	s.center.UnRegister(model.ClientID(sender), int(id), closeNow)
	return nil
}

// QueueClient submits a notification on behalf of the caller.
// D-Bus method: Queue(isia{ss}a{sv}) -> b
func (s *OverlayServer) QueueClient(sender dbus.Sender, id int32, typ string, duration int32, metadata map[string]string, options map[string]dbus.Variant) (bool, *dbus.Error) {
	n, err := BuildNotification(model.ClientID(sender), id, typ, duration, metadata, options)
	if err != nil {
		return false, dbus.MakeFailedError(err)
	}
	return s.center.Queue(n), nil
}

// ListScreens describes the overlay stack, bottom first.
// D-Bus method: Screens() -> a(sstiiibsa{ss}dsx)
func (s *OverlayServer) ListScreens() ([]ScreenRecord, *dbus.Error) {
	infos := s.center.Snapshot()
	out := make([]ScreenRecord, 0, len(infos))
	for _, info := range infos {
		out = append(out, NewScreenRecord(info))
	}
	return out, nil
}

// ShowDialog opens a dialog and returns its result id. The outcome arrives
// later as a DialogCompleted signal.
// D-Bus method: Dialog(sas) -> s
func (s *OverlayServer) ShowDialog(text string, buttons []string) (string, *dbus.Error) {
	if s.dialogs == nil {
		return "", dbus.MakeFailedError(fmt.Errorf("dialogs are not available"))
	}
	if len(buttons) == 0 {
		return "", dbus.MakeFailedError(fmt.Errorf("a dialog needs at least one button"))
	}

	resultID, err := s.dialogs(text, buttons, func(resultID string, result int, text string) {
		if err := s.EmitDialogCompleted(resultID, result, text); err != nil {
			s.logger.Warn("failed to emit DialogCompleted signal", "result_id", resultID, "error", err)
		}
	})
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return resultID, nil
}

// ClientGone drops every registration held by a client that left the bus.
func (s *OverlayServer) ClientGone(client model.ClientID) {
	s.mu.Lock()
	_, known := s.clients[client]
	delete(s.clients, client)
	s.mu.Unlock()
	if !known {
		return
	}

	ids := s.center.RegisteredIDs(client)
	for _, id := range ids {
		s.center.UnRegister(client, id, true)
	}
	s.logger.Debug("client left the bus", "client", client, "released", len(ids))
}

// NotificationShown implements center.Observer.
func (s *OverlayServer) NotificationShown(context.Context, *model.Notification, bool) {}

// ScreenClosed implements center.Observer.
func (s *OverlayServer) ScreenClosed(_ context.Context, id int, suspended bool) {
	if s.conn == nil || id <= 0 {
		return
	}
	if err := s.EmitScreenClosed(id, suspended); err != nil {
		s.logger.Debug("failed to emit ScreenClosed signal", "id", id, "error", err)
	}
}

// overlayService is overlayd's own control interface. The Go methods carry
// a suffix so they do not clash with the exported client API names.
var overlayService = service{
	path:     OverlayPath,
	iface:    OverlayInterface,
	busName:  OverlayBusName,
	flags:    dbus.NameFlagDoNotQueue,
	describe: "overlay service",
	rename: map[string]string{
		"RegisterClient":   "Register",
		"UnRegisterClient": "UnRegister",
		"QueueClient":      "Queue",
		"ListScreens":      "Screens",
		"ShowDialog":       "Dialog",
	},
	methods: []introspect.Method{
		method("Register", "->", "id:i"),
		method("UnRegister", "id:i", "close_now:b"),
		method("Queue", "id:i", "type:s", "duration:i", "metadata:a{ss}", "options:a{sv}", "->", "accepted:b"),
		method("Screens", "->", "screens:a(sstiiibsa{ss}dsx)"),
		method("Dialog", "text:s", "buttons:as", "->", "result_id:s"),
	},
	signals: []introspect.Signal{
		signal("ScreenClosed", "id:i", "suspended:b"),
		signal("DialogCompleted", "result_id:s", "result:i", "text:s"),
	},
}
