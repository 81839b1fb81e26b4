package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stipple/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", "stipple")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestConfigDirXDG(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	dir, err := configDir()
	if err != nil {
		t.Fatalf("configDir() error: %v", err)
	}
	if !strings.HasSuffix(dir, "stipple") {
		t.Errorf("configDir() = %q, should end with 'stipple'", dir)
	}

	c := New(os.Stderr, LogInfo)
	if got, want := c.presetPath(), filepath.Join(customConfig, appName, presetsFile); got != want {
		t.Errorf("presetPath() = %q, want %q", got, want)
	}
	c.configPath = "/etc/stipple.toml"
	if got := c.presetPath(); got != "/etc/stipple.toml" {
		t.Errorf("presetPath() with --config = %q", got)
	}
}

func TestNewCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c := New(os.Stderr, LogInfo)
	c.noCache = true
	got, err := c.newCache()
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	if _, ok := got.(*cache.NullCache); !ok {
		t.Errorf("newCache() with --no-cache = %T, want *cache.NullCache", got)
	}

	c.noCache = false
	got, err = c.newCache()
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer got.Close()
	if _, ok := got.(*cache.Compressed); !ok {
		t.Errorf("newCache() = %T, want *cache.Compressed", got)
	}

	c.redisURL = "not a url"
	if _, err := c.newCache(); err == nil {
		t.Error("newCache() with invalid redis URL should fail")
	}
}

func TestCacheClearCommand(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	fc, err := cache.NewFileCache(filepath.Join(xdg, appName))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	for _, k := range []string{"a", "b"} {
		if err := fc.Set(context.Background(), k, []byte(k), 0); err != nil {
			t.Fatalf("Set(%q): %v", k, err)
		}
	}

	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	if _, ok, _ := fc.Get(context.Background(), "a"); ok {
		t.Error("entry survived cache clear")
	}
}
