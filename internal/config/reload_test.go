package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReloaderRequiresExistingFile(t *testing.T) {
	_, err := NewReloader(filepath.Join(t.TempDir(), "nope.yaml"), func(VerifierConfig) {})
	assert.Error(t, err)
}

func TestReloaderDeliversChangedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_name: before"), 0600))

	var mu sync.Mutex
	var got []VerifierConfig

	r, err := NewReloader(path, func(cfg VerifierConfig) {
		mu.Lock()
		got = append(got, cfg)
		mu.Unlock()
	})
	require.NoError(t, err)
	r.SetLogger(slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	// Give the watcher time to start.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("device_name: after"), 0600))

	// Wait past the debounce window.
	time.Sleep(800 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	assert.Equal(t, "after", got[len(got)-1].DeviceName)
}

func TestReloaderKeepsPreviousConfigOnBadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_name: stable"), 0600))

	var mu sync.Mutex
	calls := 0

	r, err := NewReloader(path, func(VerifierConfig) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)
	r.SetLogger(slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)

	// Invalid rate; the callback must not see it.
	require.NoError(t, os.WriteFile(path, []byte("max_injection_rate: 9.0"), 0600))

	time.Sleep(800 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}
