package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	require.Equal(t, want, h.Hash([]byte("hello world")))
	require.Equal(t, h.Hash([]byte("hello world")), h.Hash([]byte("hello world")))
}

func TestHasherKey(t *testing.T) {
	t.Parallel()

	h := New()
	full := h.Key(0, "naukri", "go developer", "pune")
	require.Len(t, full, 64)
	require.Equal(t, h.Hash([]byte("naukri:go developer:pune")), full)

	short := h.Key(16, "naukri", "go developer", "pune")
	require.Equal(t, full[:16], short)
	require.NotEqual(t, short, h.Key(16, "naukri", "go developer", ""))
}
