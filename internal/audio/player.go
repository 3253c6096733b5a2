package audio

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	lru "github.com/hashicorp/golang-lru/v2"
)

// maxCachedCues bounds the decoded sounds kept in memory: one per
// notification type plus a few spares for reloads.
const maxCachedCues = 12

type decoder func(r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decoder{
	".wav": func(r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(r) },
	".ogg": vorbis.Decode,
	".mp3": mp3.Decode,
}

// Player decodes cue files once and plays them through the speaker. A new
// cue cuts off the one still playing, so a burst of notifications is heard
// as one sound rather than a pile-up.
type Player struct {
	logger *slog.Logger
	cues   *lru.Cache[string, *beep.Buffer]

	mu          sync.Mutex
	volume      float64 // 0..1
	initialized bool
	sampleRate  beep.SampleRate
}

// NewPlayer creates a player. The speaker is opened on the first decode.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	cues, _ := lru.New[string, *beep.Buffer](maxCachedCues)
	return &Player{
		logger:     logger,
		cues:       cues,
		volume:     1.0,
		sampleRate: beep.SampleRate(44100),
	}
}

// SetVolume sets the playback volume, clamped to 0..1.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	p.volume = max(0, min(1, volume))
	p.mu.Unlock()
}

// GetVolume returns the current volume.
func (p *Player) GetVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play plays the cue at path. An empty path is silence.
func (p *Player) Play(path string) error {
	if path == "" {
		return nil
	}
	cue, err := p.cue(expandPath(path))
	if err != nil {
		return err
	}
	p.play(cue)
	return nil
}

// Preload decodes the cue at path so its first notification plays at once.
func (p *Player) Preload(path string) error {
	if path == "" {
		return nil
	}
	if _, err := p.cue(expandPath(path)); err != nil {
		return err
	}
	p.logger.Debug("preloaded cue", "path", path)
	return nil
}

func (p *Player) cue(path string) (*beep.Buffer, error) {
	if cue, ok := p.cues.Get(path); ok {
		return cue, nil
	}

	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cue: %w", err)
	}
	streamer, format, err := decode(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode cue %s: %w", path, err)
	}
	defer func() { _ = streamer.Close() }()

	if err := p.openSpeaker(format.SampleRate); err != nil {
		return nil, err
	}

	cue := beep.NewBuffer(format)
	cue.Append(streamer)
	p.cues.Add(path, cue)
	return cue, nil
}

// openSpeaker opens the speaker at the rate of the first decoded cue. Later
// cues with other rates are resampled.
func (p *Player) openSpeaker(rate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}

	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	p.sampleRate = rate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", rate)
	return nil
}

func (p *Player) play(cue *beep.Buffer) {
	p.mu.Lock()
	volume, rate := p.volume, p.sampleRate
	p.mu.Unlock()

	var s beep.Streamer = cue.Streamer(0, cue.Len())
	if cue.Format().SampleRate != rate {
		s = beep.Resample(4, cue.Format().SampleRate, rate, s)
	}
	if volume < 1.0 {
		s = &effects.Volume{Streamer: s, Base: 2, Volume: volumeToExponent(volume), Silent: volume == 0}
	}

	speaker.Clear()
	speaker.Play(s)
}

// ClearCache drops every decoded cue, e.g. after the sound config changed.
func (p *Player) ClearCache() {
	p.cues.Purge()
}

// Close stops playback and releases the speaker.
func (p *Player) Close() {
	p.mu.Lock()
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
	p.mu.Unlock()

	p.ClearCache()
	p.logger.Debug("audio player closed")
}

// volumeToExponent maps a linear volume to the base-2 exponent used by
// effects.Volume, so 0.5 is one halving.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}

func expandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
