package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsPayloads(t *testing.T) {
	t.Parallel()

	p := New()

	id, err := p.Publish(context.Background(), map[string]int{"succeeded": 3})
	require.NoError(t, err)
	require.Equal(t, "mem-1", id)

	id, err = p.Publish(context.Background(), map[string]int{"failed": 1})
	require.NoError(t, err)
	require.Equal(t, "mem-2", id)

	msgs := p.Messages()
	require.Len(t, msgs, 2)

	var first map[string]int
	require.NoError(t, json.Unmarshal(msgs[0], &first))
	require.Equal(t, 3, first["succeeded"])
}

func TestPublishRejectsUnmarshalablePayload(t *testing.T) {
	t.Parallel()

	p := New()
	_, err := p.Publish(context.Background(), make(chan int))
	require.Error(t, err)
	require.Empty(t, p.Messages())
}
