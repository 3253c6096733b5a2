package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/tvoverlay/internal/center"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

// DialogResult is the outcome of a dialog shown through Client.Dialog.
type DialogResult struct {
	ResultID string
	Result   int // -1 = cancelled
	Text     string
}

// Client talks to overlayd's overlay interface.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private session bus connection to overlayd.
func Connect() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *dbus.Conn) *Client {
	return &Client{
		conn: conn,
		obj:  conn.Object(OverlayBusName, OverlayPath),
	}
}

// Close closes the connection. overlayd drops the client's registrations
// when it leaves the bus.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Register allocates a notification id.
func (c *Client) Register(ctx context.Context) (int, error) {
	var id int32
	if err := c.obj.CallWithContext(ctx, OverlayInterface+".Register", 0).Store(&id); err != nil {
		return -1, fmt.Errorf("failed to register: %w", err)
	}
	if id < 0 {
		return -1, fmt.Errorf("overlayd refused the registration")
	}
	return int(id), nil
}

// UnRegister releases an id.
func (c *Client) UnRegister(ctx context.Context, id int, closeNow bool) error {
	if err := c.obj.CallWithContext(ctx, OverlayInterface+".UnRegister", 0, int32(id), closeNow).Err; err != nil {
		return fmt.Errorf("failed to unregister %d: %w", id, err)
	}
	return nil
}

// Queue submits a notification. The client handle is the connection's
// unique name; n.Client is ignored.
func (c *Client) Queue(ctx context.Context, n *model.Notification) (bool, error) {
	var accepted bool
	err := c.obj.CallWithContext(ctx, OverlayInterface+".Queue", 0,
		int32(n.ID), n.Type.String(), int32(n.Duration), metadataOrEmpty(n.Metadata), NotificationOptions(n),
	).Store(&accepted)
	if err != nil {
		return false, fmt.Errorf("failed to queue notification: %w", err)
	}
	return accepted, nil
}

// Screens lists the overlay stack, bottom first.
func (c *Client) Screens(ctx context.Context) ([]center.ScreenInfo, error) {
	var records []ScreenRecord
	if err := c.obj.CallWithContext(ctx, OverlayInterface+".Screens", 0).Store(&records); err != nil {
		return nil, fmt.Errorf("failed to list screens: %w", err)
	}
	out := make([]center.ScreenInfo, 0, len(records))
	for _, r := range records {
		out = append(out, r.Info())
	}
	return out, nil
}

// Dialog shows a dialog and waits for the user's choice or ctx.
func (c *Client) Dialog(ctx context.Context, text string, buttons []string) (DialogResult, error) {
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchObjectPath(OverlayPath),
		dbus.WithMatchInterface(OverlayInterface),
		dbus.WithMatchMember("DialogCompleted"),
	); err != nil {
		return DialogResult{}, fmt.Errorf("failed to subscribe to dialog results: %w", err)
	}

	signals := make(chan *dbus.Signal, 8)
	c.conn.Signal(signals)
	defer c.conn.RemoveSignal(signals)

	var resultID string
	if err := c.obj.CallWithContext(ctx, OverlayInterface+".Dialog", 0, text, buttons).Store(&resultID); err != nil {
		return DialogResult{}, fmt.Errorf("failed to show dialog: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return DialogResult{}, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return DialogResult{}, fmt.Errorf("connection closed")
			}
			res, ok := parseDialogCompleted(sig)
			if ok && res.ResultID == resultID {
				return res, nil
			}
		}
	}
}

func parseDialogCompleted(sig *dbus.Signal) (DialogResult, bool) {
	if sig.Name != OverlayInterface+".DialogCompleted" || len(sig.Body) != 3 {
		return DialogResult{}, false
	}
	id, ok1 := sig.Body[0].(string)
	result, ok2 := sig.Body[1].(int32)
	text, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return DialogResult{}, false
	}
	return DialogResult{ResultID: id, Result: int(result), Text: text}, true
}

// NotificationOptions encodes the optional parts of n as Queue options.
func NotificationOptions(n *model.Notification) map[string]dbus.Variant {
	opts := make(map[string]dbus.Variant)
	if p := n.Playback; p != nil {
		opts[OptionProgress] = dbus.MakeVariant(p.Progress)
		if p.Text != "" {
			opts[OptionProgressText] = dbus.MakeVariant(p.Text)
		}
	}
	if n.Style != "" {
		opts[OptionStyle] = dbus.MakeVariant(n.Style)
	}
	if n.Fullscreen {
		opts[OptionFullscreen] = dbus.MakeVariant(true)
	}
	if a := n.Artwork; a != nil {
		if len(a.Image) > 0 {
			opts[OptionImageData] = dbus.MakeVariant(a.Image)
		} else if a.Path != "" {
			opts[OptionImagePath] = dbus.MakeVariant(a.Path)
		}
	}
	return opts
}

func metadataOrEmpty(md map[string]string) map[string]string {
	if md == nil {
		return map[string]string{}
	}
	return md
}
