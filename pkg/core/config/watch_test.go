package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cperrors "github.com/msto63/condparse/pkg/core/errors"
	cplog "github.com/msto63/condparse/pkg/core/log"
	"github.com/msto63/condparse/pkg/core/logging"
)

func writeWatchedConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func startWatch(t *testing.T, path string) (<-chan *Config, *Watcher) {
	t.Helper()
	changes := make(chan *Config, 4)
	w, err := Watch(context.Background(), path, func(cfg *Config) { changes <- cfg },
		WithDebounce(20*time.Millisecond),
		WithWatchLogger(logging.Wrap(cplog.Discard())),
	)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return changes, w
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "condparse.toml")
	writeWatchedConfig(t, path, "[parser]\nmax_input_length = 100\n")

	changes, w := startWatch(t, path)
	if w.Path() != path {
		t.Errorf("Path() = %q, want %q", w.Path(), path)
	}

	writeWatchedConfig(t, path, "[parser]\nmax_input_length = 200\n")

	select {
	case cfg := <-changes:
		if cfg.Parser.MaxInputLength != 200 {
			t.Errorf("MaxInputLength = %d, want 200", cfg.Parser.MaxInputLength)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatch_SkipsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "condparse.toml")
	writeWatchedConfig(t, path, "[output]\nformat = \"json\"\n")

	changes, _ := startWatch(t, path)

	writeWatchedConfig(t, path, "[output]\nformat = \"xml\"\n")
	select {
	case cfg := <-changes:
		t.Fatalf("unexpected reload with format %q", cfg.Output.Format)
	case <-time.After(300 * time.Millisecond):
	}

	writeWatchedConfig(t, path, "[output]\nformat = \"yaml\"\n")
	select {
	case cfg := <-changes:
		if cfg.Output.Format != "yaml" {
			t.Errorf("Format = %q, want yaml", cfg.Output.Format)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after fixing the file")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "condparse.toml")
	writeWatchedConfig(t, path, "")

	changes, _ := startWatch(t, path)

	writeWatchedConfig(t, filepath.Join(dir, "other.toml"), "[parser]\nmax_input_length = 1\n")
	select {
	case <-changes:
		t.Fatal("reload triggered by an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_Errors(t *testing.T) {
	if _, err := Watch(context.Background(), "", nil); !cperrors.HasCode(err, cperrors.CodeConfig) {
		t.Errorf("empty path: error = %v, want CONFIG", err)
	}

	missing := filepath.Join(t.TempDir(), "missing", "condparse.toml")
	if _, err := Watch(context.Background(), missing, nil); !cperrors.HasCode(err, cperrors.CodeConfig) {
		t.Errorf("missing dir: error = %v, want CONFIG", err)
	}
}

func TestWatch_StopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "condparse.toml")
	writeWatchedConfig(t, path, "")

	ctx, cancel := context.WithCancel(context.Background())
	w, err := Watch(ctx, path, nil, WithWatchLogger(logging.Wrap(cplog.Discard())))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return after cancel")
	}
}
