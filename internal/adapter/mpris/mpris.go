// Package mpris shows a now-playing notification for MPRIS media players.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// Client is the client id the adapter registers under.
const Client model.ClientID = "mpris"

// Playback status values reported by players.
const (
	StatusPlaying = "Playing"
	StatusPaused  = "Paused"
	StatusStopped = "Stopped"
)

// Track is the metadata of the current track.
type Track struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Length time.Duration
	ArtURL string
	URL    string
}

// key identifies a track for change detection. Some players reuse one
// trackid for every track, so the title and artist take part too.
func (t Track) key() string {
	return t.ID + "\x00" + t.Title + "\x00" + t.Artist
}

// State is a snapshot of a player.
type State struct {
	Player   string
	Status   string
	Position time.Duration
	Track    Track
}

// Source reads the current player state.
type Source interface {
	State(ctx context.Context) (State, error)
}

// Center is the part of the notification center the adapter drives.
type Center interface {
	Register(client model.ClientID) int
	UnRegister(client model.ClientID, id int, closeNow bool)
	Queue(n *model.Notification) bool
}

// Options configures an Adapter.
type Options struct {
	PollInterval time.Duration
	Duration     time.Duration // how long a track change stays up
	Logger       *slog.Logger
}

// Adapter polls a Source and keeps a registered notification in sync with
// the playing track.
type Adapter struct {
	center Center
	source Source
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	id      int
	last    State
	seen    bool
	visible time.Time // end of the current display window
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an adapter.
func New(center Center, source Source, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Duration <= 0 {
		opts.Duration = 8 * time.Second
	}
	return &Adapter{
		center: center,
		source: source,
		opts:   opts,
		logger: opts.Logger.With("component", "mpris"),
		now:    time.Now,
	}
}

// Start registers with the center and begins polling.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done != nil {
		return nil
	}
	id := a.center.Register(Client)
	if id < 0 {
		return errors.New("failed to register with notification center")
	}
	a.id = id

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)

	a.logger.Info("now-playing adapter started", "id", id, "interval", a.opts.PollInterval)
	return nil
}

// Stop stops polling and closes the notification.
func (a *Adapter) Stop() {
	a.mu.Lock()
	cancel, done, id := a.cancel, a.done, a.id
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	a.center.UnRegister(Client, id, true)
}

func (a *Adapter) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		a.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *Adapter) poll(ctx context.Context) {
	st, err := a.source.State(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoPlayer) && ctx.Err() == nil {
			a.logger.Debug("failed to read player state", "error", err)
		}
		st = State{Status: StatusStopped}
	}
	a.step(st)
}

// step compares st with the previous poll and queues what changed. A new
// track, or playback starting, shows the screen for the configured
// duration. While that window lasts each tick sends a progress update.
func (a *Adapter) step(st State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, seen := a.last, a.seen
	a.last, a.seen = st, true

	if st.Status == StatusStopped || st.Track.Title == "" {
		return
	}

	now := a.now()
	changed := !seen || prev.Track.key() != st.Track.key()
	resumed := seen && prev.Status != StatusPlaying && st.Status == StatusPlaying

	if changed || resumed {
		a.visible = now.Add(a.opts.Duration)
		n := a.trackNotification(st)
		if !a.center.Queue(n) {
			a.logger.Debug("now-playing notification rejected", "title", st.Track.Title)
		}
		return
	}

	if now.After(a.visible) || st.Position == prev.Position {
		return
	}

	n := model.NewNotification(model.TypeUpdate, "")
	n.ID = a.id
	n.Client = Client
	n.Duration = remaining(a.visible, now)
	n.SetProgress(progress(st), ProgressText(st.Position, st.Track.Length))
	if !a.center.Queue(n) {
		// dismissed; wait for the next track or resume
		a.visible = time.Time{}
	}
}

func (a *Adapter) trackNotification(st State) *model.Notification {
	n := model.NewNotification(model.TypeNew, st.Track.Title)
	n.ID = a.id
	n.Client = Client
	n.Duration = int(a.opts.Duration / time.Second)
	if st.Track.Artist != "" {
		n.SetMeta(model.MetaArtist, st.Track.Artist)
	}
	if st.Track.Album != "" {
		n.SetMeta(model.MetaAlbum, st.Track.Album)
	}
	if st.Player != "" {
		n.SetMeta(model.MetaFormat, st.Player)
	}
	if path := ArtworkPath(st.Track); path != "" {
		n.Artwork = &model.Artwork{Path: path}
	}
	n.SetProgress(progress(st), ProgressText(st.Position, st.Track.Length))
	return n
}

func progress(st State) float64 {
	if st.Track.Length <= 0 {
		return model.NoProgress
	}
	p := float64(st.Position) / float64(st.Track.Length)
	return min(max(p, 0), 1)
}

// remaining returns whole seconds left until deadline, rounded up.
func remaining(deadline, now time.Time) int {
	d := deadline.Sub(now)
	return int((d + time.Second - 1) / time.Second)
}

// ProgressText formats a position such as "1:05 / 3:20". Without a known
// length only the position is shown.
func ProgressText(pos, length time.Duration) string {
	if length <= 0 {
		return FormatClock(pos)
	}
	return FormatClock(pos) + " / " + FormatClock(length)
}

// FormatClock formats d as m:ss, or h:mm:ss from one hour.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
