package mpris

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busPrefix       = "org.mpris.MediaPlayer2."
	objectPath      = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerInterface = "org.mpris.MediaPlayer2.Player"
)

// ErrNoPlayer is returned when no MPRIS player is on the bus.
var ErrNoPlayer = errors.New("no MPRIS player found")

// BusSource reads player state from the session bus.
type BusSource struct {
	conn   *dbus.Conn
	player string // bus name suffix, empty = first player found
}

// NewBusSource creates a source reading from conn. player selects a bus
// name suffix such as "mpv"; empty picks the first player on the bus.
func NewBusSource(conn *dbus.Conn, player string) *BusSource {
	return &BusSource{conn: conn, player: player}
}

// busName resolves the player's bus name.
func (s *BusSource) busName(ctx context.Context) (string, error) {
	var names []string
	if err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return "", fmt.Errorf("failed to list bus names: %w", err)
	}
	return pickPlayer(names, s.player)
}

func pickPlayer(names []string, want string) (string, error) {
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, busPrefix) {
			players = append(players, name)
		}
	}
	slices.Sort(players)

	for _, name := range players {
		suffix := strings.TrimPrefix(name, busPrefix)
		// players may append ".instanceN" to their name
		if want == "" || suffix == want || strings.HasPrefix(suffix, want+".") {
			return name, nil
		}
	}
	return "", ErrNoPlayer
}

// State implements Source.
func (s *BusSource) State(ctx context.Context) (State, error) {
	name, err := s.busName(ctx)
	if err != nil {
		return State{}, err
	}
	obj := s.conn.Object(name, objectPath)

	var props map[string]dbus.Variant
	if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.GetAll", 0, playerInterface).Store(&props); err != nil {
		return State{}, fmt.Errorf("failed to read player properties: %w", err)
	}

	st := State{Player: strings.TrimPrefix(name, busPrefix)}
	if v, ok := props["PlaybackStatus"]; ok {
		st.Status, _ = v.Value().(string)
	}
	if v, ok := props["Metadata"]; ok {
		if md, ok := v.Value().(map[string]dbus.Variant); ok {
			st.Track = ParseMetadata(md)
		}
	}
	// Position is not cached by GetAll on every player, so ask for it directly
	if v, err := obj.GetProperty(playerInterface + ".Position"); err == nil {
		if us, ok := asInt64(v.Value()); ok {
			st.Position = time.Duration(us) * time.Microsecond
		}
	} else if v, ok := props["Position"]; ok {
		if us, ok := asInt64(v.Value()); ok {
			st.Position = time.Duration(us) * time.Microsecond
		}
	}
	return st, nil
}

// ParseMetadata reads the xesam/mpris metadata map into a Track.
func ParseMetadata(md map[string]dbus.Variant) Track {
	var t Track
	if v, ok := md["mpris:trackid"]; ok {
		switch id := v.Value().(type) {
		case dbus.ObjectPath:
			t.ID = string(id)
		case string:
			t.ID = id
		}
	}
	if v, ok := md["xesam:title"]; ok {
		t.Title, _ = v.Value().(string)
	}
	if v, ok := md["xesam:artist"]; ok {
		switch a := v.Value().(type) {
		case []string:
			t.Artist = strings.Join(a, ", ")
		case string:
			t.Artist = a
		}
	}
	if v, ok := md["xesam:album"]; ok {
		t.Album, _ = v.Value().(string)
	}
	if v, ok := md["mpris:length"]; ok {
		if us, ok := asInt64(v.Value()); ok {
			t.Length = time.Duration(us) * time.Microsecond
		}
	}
	if v, ok := md["mpris:artUrl"]; ok {
		t.ArtURL, _ = v.Value().(string)
	}
	if v, ok := md["xesam:url"]; ok {
		t.URL, _ = v.Value().(string)
	}
	return t
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
