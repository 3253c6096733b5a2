package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/config"
	"github.com/jmylchreest/tvoverlay/internal/dialog"
	"github.com/jmylchreest/tvoverlay/internal/model"
)

func testConfig(t *testing.T) (*config.DaemonConfig, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultDaemonConfig()
	cfg.Host.Backend = config.BackendHeadless
	cfg.DBus.Enabled = false
	cfg.MPRIS.Enabled = false
	cfg.Layout.Dir = filepath.Join(dir, "layouts")
	cfg.Layout.Watch = false
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(dir, "journal.jsonl")
	return cfg, filepath.Join(dir, "overlayd.toml")
}

func startDaemon(t *testing.T, cfg *config.DaemonConfig, configPath string) (*Daemon, *HeadlessHost, context.CancelFunc, <-chan error) {
	t.Helper()
	host := NewHeadlessHost(nil)
	d, err := New(Options{Config: cfg, ConfigPath: configPath, Host: host, Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()
	return d, host, cancel, errCh
}

func TestNew_RequiresHost(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestDaemon_QueueAndJournal(t *testing.T) {
	cfg, configPath := testConfig(t)
	cfg.Journal.Enabled = true
	d, _, cancel, errCh := startDaemon(t, cfg, configPath)

	n := model.NewNotification(model.TypeNew, "Recording started")
	n.Duration = 30
	require.True(t, d.Center().Queue(n))

	assert.Eventually(t, func() bool {
		for _, s := range d.Center().Snapshot() {
			if s.Metadata[model.MetaTitle] == "Recording started" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	assert.False(t, d.Center().Queue(n), "closed center rejects notifications")

	data, err := os.ReadFile(cfg.Journal.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Recording started")
	assert.Contains(t, string(data), "overlayd started")
}

func TestDaemon_ShowDialog(t *testing.T) {
	cfg, configPath := testConfig(t)
	cfg.Journal.Enabled = false
	d, host, cancel, errCh := startDaemon(t, cfg, configPath)
	defer func() {
		cancel()
		<-errCh
	}()

	type result struct {
		id   string
		pick int
		text string
	}
	got := make(chan result, 1)
	resultID, err := d.ShowDialog("Delete recording?", []string{"Yes", "No"}, func(id string, pick int, text string) {
		got <- result{id, pick, text}
	})
	require.NoError(t, err)
	require.NotEmpty(t, resultID)

	var box *dialog.Box
	assert.Eventually(t, func() bool {
		_ = host.Do(context.Background(), func(context.Context) {
			box, _ = d.Center().Top().(*dialog.Box)
		})
		return box != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, box)

	require.NoError(t, host.Do(context.Background(), func(ctx context.Context) {
		box.HandleAction(ctx, dialog.ActionDown)
		box.HandleAction(ctx, dialog.ActionSelect)
	}))

	select {
	case r := <-got:
		assert.Equal(t, resultID, r.id)
		assert.Equal(t, 1, r.pick)
		assert.Equal(t, "No", r.text)
	case <-time.After(2 * time.Second):
		t.Fatal("dialog did not complete")
	}
}

func TestDaemon_ShutdownCancelsOpenDialog(t *testing.T) {
	cfg, configPath := testConfig(t)
	cfg.Journal.Enabled = false
	d, host, cancel, errCh := startDaemon(t, cfg, configPath)

	got := make(chan int, 1)
	resultID, err := d.ShowDialog("Keep recording?", []string{"Yes"}, func(_ string, pick int, _ string) {
		got <- pick
	})
	require.NoError(t, err)
	require.NotEmpty(t, resultID)

	assert.Eventually(t, func() bool {
		var open bool
		_ = host.Do(context.Background(), func(context.Context) {
			_, open = d.Center().Top().(*dialog.Box)
		})
		return open
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	select {
	case pick := <-got:
		assert.Equal(t, -1, pick)
	default:
		t.Fatal("open dialog was not cancelled at shutdown")
	}
}

type configuredHost struct {
	*HeadlessHost
	mu       sync.Mutex
	updates  []*config.DaemonConfig
	onReload func(string)
	onError  func(error)
}

func (h *configuredHost) UpdateConfig(cfg *config.DaemonConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, cfg)
}

func (h *configuredHost) SetThemeCallbacks(onReload func(string), onError func(error)) {
	h.onReload = onReload
	h.onError = onError
}

func TestDaemon_ConfigReload(t *testing.T) {
	cfg, configPath := testConfig(t)
	cfg.Journal.Enabled = false
	host := &configuredHost{HeadlessHost: NewHeadlessHost(nil)}
	d, err := New(Options{Config: cfg, ConfigPath: configPath, Host: host})
	require.NoError(t, err)
	assert.NotNil(t, host.onReload, "theme callbacks are wired")
	assert.NotNil(t, host.onError)

	next := *cfg
	next.Audio.Volume = 10
	d.applyConfig(context.Background(), &next)
	assert.Equal(t, 10, d.Config().Audio.Volume)

	host.mu.Lock()
	require.Len(t, host.updates, 1)
	assert.Same(t, &next, host.updates[0])
	host.mu.Unlock()
	d.Stop()
}

func TestHeadlessHost_ShutdownRunsOnLoop(t *testing.T) {
	host := NewHeadlessHost(nil)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	owned := false
	done := make(chan error, 1)
	go func() {
		done <- host.Run(ctx, func(ctx context.Context) {
			mu.Lock()
			owned = host.Owner().Owns(ctx)
			mu.Unlock()
		})
	}()

	require.NoError(t, host.Do(context.Background(), func(context.Context) {}))
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, owned)
}
