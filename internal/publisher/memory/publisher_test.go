package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsEncodedPayloads(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "sweeps", map[string]any{"keyword": "go", "total_jobs": 3})
	require.NoError(t, err)
	require.Equal(t, "1", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "sweeps", msgs[0].Topic)
	require.JSONEq(t, `{"keyword":"go","total_jobs":3}`, string(msgs[0].Data))

	var got struct {
		Keyword string `json:"keyword"`
	}
	require.NoError(t, msgs[0].Decode(&got))
	require.Equal(t, "go", got.Keyword)
}

func TestPublishRejectsBadInput(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "", "x")
	require.ErrorContains(t, err, "topic")
	_, err = pub.Publish(context.Background(), "sweeps", make(chan int))
	require.ErrorContains(t, err, "marshal")
	require.Empty(t, pub.Messages())
}
