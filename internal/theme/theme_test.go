package theme

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessImports_BundledPartial(t *testing.T) {
	css, ok := Bundled("minimal")
	require.True(t, ok)

	result := ProcessImports(css, "", nil)
	assert.Contains(t, result, "/* imported (embedded): _base.css */")
	assert.Contains(t, result, "window.overlay-window")
	assert.NotContains(t, result, "@import")
}

func TestProcessImports_NoImports(t *testing.T) {
	css := `.overlay-screen { color: red; }`
	result := ProcessImports(css, "", nil)
	assert.Equal(t, css, result)
}

func TestProcessImports_FileImport(t *testing.T) {
	tmpDir := t.TempDir()

	partialContent := `:root { --custom: #ff0000; }`
	partialPath := filepath.Join(tmpDir, "_custom.css")
	err := os.WriteFile(partialPath, []byte(partialContent), 0644)
	require.NoError(t, err)

	mainCSS := `@import "_custom.css";
.overlay-screen { color: var(--custom); }`

	result := ProcessImports(mainCSS, tmpDir, nil)

	assert.Contains(t, result, "/* imported: _custom.css */")
	assert.Contains(t, result, "--custom: #ff0000")
	assert.Contains(t, result, ".overlay-screen")
}

func TestProcessImports_NestedImports(t *testing.T) {
	tmpDir := t.TempDir()

	grandchildContent := `.grandchild { color: blue; }`
	grandchildPath := filepath.Join(tmpDir, "_grandchild.css")
	err := os.WriteFile(grandchildPath, []byte(grandchildContent), 0644)
	require.NoError(t, err)

	childContent := `@import "_grandchild.css";
.child { color: green; }`
	childPath := filepath.Join(tmpDir, "_child.css")
	err = os.WriteFile(childPath, []byte(childContent), 0644)
	require.NoError(t, err)

	mainCSS := `@import "_child.css";
.main { color: red; }`

	result := ProcessImports(mainCSS, tmpDir, nil)

	assert.Contains(t, result, "/* imported: _child.css */")
	assert.Contains(t, result, "/* imported: _grandchild.css */")
	assert.Contains(t, result, ".grandchild")
	assert.Contains(t, result, ".child")
	assert.Contains(t, result, ".main")
}

func TestProcessImports_CircularPrevention(t *testing.T) {
	tmpDir := t.TempDir()

	aContent := `@import "_b.css";
.a { color: red; }`
	aPath := filepath.Join(tmpDir, "_a.css")
	err := os.WriteFile(aPath, []byte(aContent), 0644)
	require.NoError(t, err)

	bContent := `@import "_a.css";
.b { color: blue; }`
	bPath := filepath.Join(tmpDir, "_b.css")
	err = os.WriteFile(bPath, []byte(bContent), 0644)
	require.NoError(t, err)

	result := ProcessImports(`@import "_a.css";`, tmpDir, nil)

	assert.Contains(t, result, "/* imported: _a.css */")
	assert.Contains(t, result, "/* imported: _b.css */")
	assert.Contains(t, result, "/* circular import prevented: _a.css */")
}

func TestProcessImports_MissingFile(t *testing.T) {
	css := `@import "nonexistent.css";`

	result := ProcessImports(css, "/tmp", nil)

	assert.Contains(t, result, "/* import failed: nonexistent.css")
}

func TestProcessImports_FallbackToEmbeddedTheme(t *testing.T) {
	css := `@import "default.css";`

	result := ProcessImports(css, "/nonexistent/path", nil)

	assert.Contains(t, result, "/* imported (embedded): default.css */")
	assert.Contains(t, result, ".overlay-screen")
}

func TestImportRegex(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`@import "file.css";`, "file.css"},
		{`@import 'file.css';`, "file.css"},
		{`@import url("file.css");`, "file.css"},
		{`@import url('file.css');`, "file.css"},
		{`@import url( "file.css" );`, "file.css"},
		{`@import "_partial.css"`, "_partial.css"}, // Without semicolon
		{`@import   "spaced.css"  ;`, "spaced.css"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			matches := importRegex.FindStringSubmatch(tt.input)
			require.Len(t, matches, 2, "should match import statement")
			assert.Equal(t, tt.expected, matches[1])
		})
	}
}

func TestNewTheme_ProcessesImports(t *testing.T) {
	tmpDir := t.TempDir()

	partialContent := `:root { --custom: #ff0000; }`
	partialPath := filepath.Join(tmpDir, "_colors.css")
	err := os.WriteFile(partialPath, []byte(partialContent), 0644)
	require.NoError(t, err)

	themeContent := `@import "_colors.css";
.overlay-screen { color: var(--custom); }`
	themePath := filepath.Join(tmpDir, "custom.css")
	err = os.WriteFile(themePath, []byte(themeContent), 0644)
	require.NoError(t, err)

	theme, err := NewTheme("custom", themePath)
	require.NoError(t, err)

	assert.Contains(t, theme.CSS, "/* imported: _colors.css */")
	assert.Contains(t, theme.CSS, "--custom: #ff0000")
	assert.Contains(t, theme.CSS, ".overlay-screen")
}

func TestTheme_Reload_ProcessesImports(t *testing.T) {
	tmpDir := t.TempDir()

	themeContent := `.overlay-screen { color: red; }`
	themePath := filepath.Join(tmpDir, "test.css")
	err := os.WriteFile(themePath, []byte(themeContent), 0644)
	require.NoError(t, err)

	theme, err := NewTheme("test", themePath)
	require.NoError(t, err)
	assert.Contains(t, theme.CSS, "color: red")

	partialContent := `:root { --new-color: blue; }`
	partialPath := filepath.Join(tmpDir, "_new.css")
	err = os.WriteFile(partialPath, []byte(partialContent), 0644)
	require.NoError(t, err)

	newContent := `@import "_new.css";
.overlay-screen { color: var(--new-color); }`
	err = os.WriteFile(themePath, []byte(newContent), 0644)
	require.NoError(t, err)

	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(themePath, future, future))

	changed, err := theme.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, theme.CSS, "/* imported: _new.css */")
	assert.Contains(t, theme.CSS, "--new-color: blue")
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "minimal.css"), []byte(".overlay-screen { color: red; }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.css"), []byte(".overlay-title { color: blue; }"), 0o644))

	tests := []struct {
		name        string
		theme       string
		wantBundled bool
		wantCSS     string
		wantErr     error
	}{
		{"empty is default", "", true, "@window_bg_color", nil},
		{"bundled", "catppuccin", true, "--ctp-base", nil},
		{"user overrides bundled", "minimal", false, "color: red", nil},
		{"user only", "mine", false, "color: blue", nil},
		{"unknown", "nope", false, "", ErrThemeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(dir, tt.theme)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBundled, got.Bundled())
			assert.Contains(t, got.CSS, tt.wantCSS)
		})
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.css"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.css"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_colors.css"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(""), 0o644))

	themes, err := List(dir)
	require.NoError(t, err)

	byName := make(map[string]Info)
	for _, info := range themes {
		byName[info.Name] = info
	}
	assert.Len(t, byName, len(themes), "names are unique")
	assert.NotContains(t, byName, "_colors")
	assert.NotContains(t, byName, "notes")

	assert.False(t, byName["default"].Bundled, "user file overrides the bundled default")
	assert.True(t, byName["default"].Default)
	assert.True(t, byName["catppuccin"].Bundled)
	assert.Equal(t, filepath.Join(dir, "mine.css"), byName["mine"].Path)

	themes, err = List(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Len(t, themes, len(ListBundled()))
}

func TestWatcher_ReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.css")
	require.NoError(t, os.WriteFile(path, []byte(".overlay-screen { color: red; }"), 0o644))

	theme, err := NewTheme("live", path)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []string
	w := NewWatcher(theme, nil)
	w.SetPollInterval(10 * time.Millisecond)
	w.SetChangeCallback(func(css string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, css)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())

	require.NoError(t, os.WriteFile(path, []byte(".overlay-screen { color: green; }"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == ".overlay-screen { color: green; }"
	}, time.Second, 10*time.Millisecond)

	w.Stop()
	assert.False(t, w.IsRunning())
	w.Stop()
}

func TestWatcher_ReportsErrorOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.css")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	theme, err := NewTheme("gone", path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	var mu sync.Mutex
	var errs []error
	w := NewWatcher(theme, nil)
	w.SetPollInterval(5 * time.Millisecond)
	w.SetErrorCallback(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	})
	require.NoError(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], os.ErrNotExist))
}

func TestWatcher_IgnoresBundled(t *testing.T) {
	theme, ok := newBundledTheme("default")
	require.True(t, ok)

	w := NewWatcher(theme, nil)
	require.NoError(t, w.Start(context.Background()))
	assert.False(t, w.IsRunning())
}
