package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	t.Parallel()

	require.Equal(t, "naukri/go/1.html", Join("", "naukri/go/1.html"))
	require.Equal(t, "pages/naukri/go/1.html", Join("/pages/", "/naukri/go/1.html"))
}
