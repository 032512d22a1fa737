package headless

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewValidatesMaxParallel(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1})
	require.Error(t, err)

	f, err := New(Config{MaxParallel: 2})
	require.NoError(t, err)
	require.Equal(t, 2, cap(f.limiter))
	require.Equal(t, defaultNavTimeout, f.cfg.NavigationTimeout)
}

func TestAllocatorOptionsIncludeOverrides(t *testing.T) {
	t.Parallel()

	base := len(allocatorOptions(Config{}))
	withUA := allocatorOptions(Config{UserAgent: "jobscout-test", ExecPath: "/usr/bin/chromium"})
	require.Len(t, withUA, base+2)
}

func TestAcquireRespectsContext(t *testing.T) {
	t.Parallel()

	f, err := New(Config{MaxParallel: 1})
	require.NoError(t, err)
	require.NoError(t, f.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorContains(t, f.acquire(ctx), "browser slot wait canceled")

	f.release()
	require.NoError(t, f.acquire(context.Background()))
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	cancels, releases := 0, 0
	s := &Session{
		browserCtx: context.Background(),
		navTimeout: time.Second,
		cancel:     func() { cancels++ },
		release:    func() { releases++ },
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Equal(t, 1, cancels)
	require.Equal(t, 1, releases)
	require.ErrorContains(t, s.Navigate(context.Background(), "https://example.com"), "session closed")
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not canceled")
	}
}
