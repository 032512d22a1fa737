package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterSpacesSameHost(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://www.naukri.com/go-jobs"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://WWW.NAUKRI.COM/java-jobs"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterHostsAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://www.linkedin.com/jobs/search"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://unstop.com/jobs"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterDisabledAndCanceled(t *testing.T) {
	t.Parallel()

	unlimited := New(Config{})
	for i := 0; i < 5; i++ {
		require.NoError(t, unlimited.Wait(context.Background(), "https://unstop.com"))
	}

	slow := New(Config{DefaultRPS: 0.01, DefaultBurst: 1})
	require.NoError(t, slow.Wait(context.Background(), "https://unstop.com"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, slow.Wait(ctx, "https://unstop.com"))
}
