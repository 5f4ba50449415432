package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutAndGetObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "runs/report.json", "application/json", strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, "memory://runs/report.json", uri)
	require.Equal(t, 1, store.Len())

	body, ok := store.GetObject("runs/report.json")
	require.True(t, ok)
	require.Equal(t, `{"ok":true}`, string(body))

	_, ok = store.GetObject("missing")
	require.False(t, ok)
}

func TestGetObjectReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "a", "text/plain", strings.NewReader("abc"))
	require.NoError(t, err)

	body, ok := store.GetObject("a")
	require.True(t, ok)
	body[0] = 'x'

	again, _ := store.GetObject("a")
	require.Equal(t, "abc", string(again))
}
