package center

import (
	"maps"
	"time"

	"github.com/jmylchreest/tvoverlay/internal/layout"
	"github.com/jmylchreest/tvoverlay/internal/model"
	"github.com/jmylchreest/tvoverlay/internal/overlay"
)

// Fields is a set of notification data kinds.
type Fields uint8

const (
	FieldImage Fields = 1 << iota
	FieldDuration
	FieldMetadata
	FieldStyle

	FieldNone Fields = 0
	FieldAll         = FieldImage | FieldDuration | FieldMetadata | FieldStyle
)

// Has reports whether every field in x is in f.
func (f Fields) Has(x Fields) bool {
	return f&x == x
}

func (f Fields) String() string {
	if f == FieldNone {
		return "none"
	}
	names := []struct {
		f    Fields
		name string
	}{
		{FieldImage, "image"},
		{FieldDuration, "duration"},
		{FieldMetadata, "metadata"},
		{FieldStyle, "style"},
	}
	s := ""
	for _, n := range names {
		if f.Has(n.f) {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	return s
}

const (
	// Gap is the vertical space between stacked notification screens.
	Gap = 5
	// MinDuration is the shortest time a notification stays up.
	MinDuration = 5 * time.Second
)

// Layout names a notification screen can resolve to.
const (
	LayoutNotification      = "notification"
	LayoutNotificationImage = "notification-image"
	LayoutNotificationFull  = "notification-full"
)

// metadata keys and the element each one drives
var metadataElements = []struct {
	key     string
	element layout.ElementType
}{
	{model.MetaTitle, layout.ElementTypeTitle},
	{model.MetaArtist, layout.ElementTypeOrigin},
	{model.MetaAlbum, layout.ElementTypeDescription},
	{model.MetaFormat, layout.ElementTypeExtra},
}

// notificationElements are the layout elements a notification screen drives.
var notificationElements = []layout.ElementType{
	layout.ElementTypeImage,
	layout.ElementTypeTitle,
	layout.ElementTypeOrigin,
	layout.ElementTypeDescription,
	layout.ElementTypeExtra,
	layout.ElementTypeProgressText,
	layout.ElementTypeProgress,
}

// Element is the display state of one layout element.
type Element struct {
	Type     layout.ElementType
	Text     string
	Artwork  *model.Artwork
	Progress float64 // 0..1, model.NoProgress = reset
	Visible  bool
}

// Screen is a notification screen: the UI state bound to zero or one
// notification id. All fields are guarded by the owning Center's lock.
type Screen struct {
	handle uint64
	id     int

	content    Fields
	update     Fields
	fullscreen bool
	duration   int
	metadata   map[string]string
	artwork    *model.Artwork
	playback   model.Playback
	style      string

	layout   *layout.LayoutConfig
	elements map[layout.ElementType]*Element
	resolved [2]string // layout name and style Create resolved
	created  bool
	added    bool
	detached bool

	rank   int
	baseX  int
	baseY  int
	y      int
	height int

	expiry   time.Time
	timer    timer
	timerGen uint64
	clock    clock
	onExpire func(s *Screen, gen uint64)
}

var _ overlay.Overlay = (*Screen)(nil)

func newScreen(handle uint64, n *model.Notification, clk clock, onExpire func(*Screen, uint64)) *Screen {
	s := &Screen{
		handle:   handle,
		id:       n.ID,
		duration: -1,
		playback: model.Playback{Progress: model.NoProgress},
		update:   FieldAll,
		clock:    clk,
		onExpire: onExpire,
	}
	s.SetNotification(n)
	return s
}

// Kind implements overlay.Overlay.
func (s *Screen) Kind() overlay.Kind { return overlay.KindNotification }

// Name implements overlay.Overlay.
func (s *Screen) Name() string {
	if s.layout != nil {
		return s.layout.Name
	}
	return LayoutNotification
}

// Handle returns the screen's unique handle.
func (s *Screen) Handle() uint64 { return s.handle }

// ID returns the notification id the screen is bound to.
func (s *Screen) ID() int { return s.id }

// SetNotification merges n into the screen and re-arms the expiry timer.
func (s *Screen) SetNotification(n *model.Notification) {
	update := n.Type.IsUpdate()
	s.update = FieldNone

	if n.Artwork != nil {
		art := *n.Artwork
		s.artwork = &art
		s.update |= FieldImage
	}

	if n.Playback != nil {
		s.playback = *n.Playback
		s.update |= FieldDuration
	}

	if len(n.Metadata) > 0 || !update {
		s.setMetadata(n.Metadata, update)
		s.update |= FieldMetadata
	}

	if style := n.EffectiveStyle(); style != "" {
		s.style = style
		s.update |= FieldStyle
	}

	if !update {
		s.content = s.update
		s.fullscreen = n.Fullscreen
	}

	s.duration = n.Duration
	s.arm()
}

// setMetadata adopts explicit values. A missing key is left unchanged when
// merging and cleared otherwise, which resets the element to its theme
// default on the next refresh.
func (s *Screen) setMetadata(md map[string]string, merge bool) {
	if s.metadata == nil {
		s.metadata = make(map[string]string)
	}
	for _, m := range metadataElements {
		v, ok := md[m.key]
		switch {
		case ok:
			s.metadata[m.key] = v
		case !merge:
			delete(s.metadata, m.key)
		}
	}
}

// arm (re)starts the expiry timer. Registered screens without a positive
// duration are persistent.
func (s *Screen) arm() {
	s.stopTimer()

	if s.id > 0 && s.duration <= 0 {
		s.expiry = time.Time{}
		return
	}

	d := time.Duration(s.duration) * time.Second
	if d < MinDuration {
		d = MinDuration
	}

	now := time.Now()
	if s.clock != nil {
		now = s.clock.Now()
	}
	s.expiry = now.Add(d)

	if s.clock == nil || s.onExpire == nil || s.detached {
		return
	}
	gen := s.timerGen
	fire := s.onExpire
	s.timer = s.clock.AfterFunc(d, func() { fire(s, gen) })
}

func (s *Screen) stopTimer() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// layoutName picks the screen definition for the screen's content.
func (s *Screen) layoutName() string {
	switch {
	case s.fullscreen:
		return LayoutNotificationFull
	case s.content.Has(FieldImage):
		return LayoutNotificationImage
	default:
		return LayoutNotification
	}
}

// Create resolves the screen's layout and binds its elements. Elements the
// layout lacks are simply not drawn.
func (s *Screen) Create(r Resolver) error {
	cfg, err := r.Resolve(s.layoutName(), s.style)
	if err != nil {
		return err
	}

	s.layout = cfg
	s.resolved = [2]string{s.layoutName(), s.style}
	s.elements = make(map[layout.ElementType]*Element)
	for _, t := range notificationElements {
		if !cfg.Has(t) {
			continue
		}
		s.elements[t] = &Element{
			Type:     t,
			Text:     cfg.Default(t),
			Progress: model.NoProgress,
			Visible:  true,
		}
	}

	s.baseX = cfg.X
	s.baseY = cfg.Y
	s.y = cfg.Y
	s.height = cfg.Height
	s.created = true
	return nil
}

// stale reports whether the screen's content now calls for a different
// layout than the one it was created with.
func (s *Screen) stale() bool {
	return s.created && s.resolved != [2]string{s.layoutName(), s.style}
}

// Created reports whether the layout has been resolved.
func (s *Screen) Created() bool { return s.created }

// Fullscreen reports whether the screen covers the display.
func (s *Screen) Fullscreen() bool { return s.fullscreen }

// Rank returns the screen's vertical slot among non-fullscreen screens.
func (s *Screen) Rank() int { return s.rank }

// Y returns the screen's current vertical position.
func (s *Screen) Y() int { return s.y }

// Expiry returns when the screen's timer fires, or the zero time.
func (s *Screen) Expiry() time.Time { return s.expiry }

// Content returns the kinds of data the screen shows.
func (s *Screen) Content() Fields { return s.content }

// Pending returns the kinds of data changed since the last refresh.
func (s *Screen) Pending() Fields { return s.update }

// Meta returns a metadata value of the screen.
func (s *Screen) Meta(key string) (string, bool) {
	v, ok := s.metadata[key]
	return v, ok
}

// Element returns the display state of an element, if the layout has it.
func (s *Screen) Element(t layout.ElementType) (Element, bool) {
	e, ok := s.elements[t]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// AdjustIndex sets (set=true) or moves (set=false) the screen's rank and
// re-derives its vertical position. It reports whether the screen moved.
func (s *Screen) AdjustIndex(by int, set bool) bool {
	if set {
		s.rank = by
	} else {
		s.rank += by
	}
	return s.adjustY()
}

func (s *Screen) adjustY() bool {
	y := s.baseY + (s.height+Gap)*s.rank
	if y == s.y {
		return false
	}
	s.y = y
	return true
}

// apply writes the pending fields into the element states and clears the
// pending set.
func (s *Screen) apply() {
	s.adjustY()

	if e, ok := s.elements[layout.ElementTypeImage]; ok && s.update.Has(FieldImage) {
		if s.artwork != nil && (s.artwork.Path != "" || len(s.artwork.Image) > 0) {
			e.Artwork = s.artwork
		} else {
			e.Artwork = nil
		}
	}

	if s.update.Has(FieldMetadata) {
		for _, m := range metadataElements {
			e, ok := s.elements[m.element]
			if !ok {
				continue
			}
			if v, ok := s.metadata[m.key]; ok {
				e.Text = v
			} else {
				e.Text = s.layout.Default(m.element)
			}
		}
	}

	showPlayback := s.content.Has(FieldDuration)

	if e, ok := s.elements[layout.ElementTypeProgressText]; ok {
		e.Visible = showPlayback
		if s.update.Has(FieldDuration) {
			if s.playback.Text != "" {
				e.Text = s.playback.Text
			} else {
				e.Text = s.layout.Default(layout.ElementTypeProgressText)
			}
		}
	}

	if e, ok := s.elements[layout.ElementTypeProgress]; ok {
		e.Visible = showPlayback
		if s.update.Has(FieldDuration) {
			if s.playback.Progress >= 0 {
				e.Progress = s.playback.Progress
			} else {
				e.Progress = model.NoProgress
			}
		}
	}

	s.update = FieldNone
}

// copy returns a detached, uncreated screen carrying s's content with every
// field pending.
func (s *Screen) copy(handle uint64) *Screen {
	c := &Screen{handle: handle, clock: s.clock, onExpire: s.onExpire}
	c.assign(s)
	return c
}

// assign copies from's content into s and marks every field pending.
func (s *Screen) assign(from *Screen) {
	s.id = from.id
	s.content = from.content
	s.fullscreen = from.fullscreen
	s.duration = from.duration
	s.metadata = maps.Clone(from.metadata)
	s.artwork = from.artwork
	s.playback = from.playback
	s.style = from.style
	s.expiry = from.expiry
	s.rank = from.rank
	s.update = FieldAll
}

// Render is a snapshot of a screen for the host to draw.
type Render struct {
	Handle     uint64
	ID         int
	Layout     *layout.LayoutConfig
	X          int
	Y          int
	Width      int
	Height     int
	Rank       int
	Fullscreen bool
	Style      string
	Expiry     time.Time
	Elements   map[layout.ElementType]Element
}

// Text returns the text of an element, or "".
func (r Render) Text(t layout.ElementType) string {
	return r.Elements[t].Text
}

// Visible reports whether an element exists and is visible.
func (r Render) Visible(t layout.ElementType) bool {
	e, ok := r.Elements[t]
	return ok && e.Visible
}

// Render snapshots the screen.
func (s *Screen) Render() Render {
	r := Render{
		Handle:     s.handle,
		ID:         s.id,
		Layout:     s.layout,
		X:          s.baseX,
		Y:          s.y,
		Height:     s.height,
		Rank:       s.rank,
		Fullscreen: s.fullscreen,
		Style:      s.style,
		Expiry:     s.expiry,
		Elements:   make(map[layout.ElementType]Element, len(s.elements)),
	}
	if s.layout != nil {
		r.Width = s.layout.Width
	}
	for t, e := range s.elements {
		r.Elements[t] = *e
	}
	return r
}
