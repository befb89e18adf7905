package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"thirdcoast.systems/airwave/cmd/airwave/internal/status"
)

func TestIndex_VersionsAssets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Index(1760788800).Render(context.Background(), &buf))

	out := buf.String()
	require.Contains(t, out, `/static/js/airwave.js?v=1760788800`)
	require.Contains(t, out, `/static/css/airwave.css?v=1760788800`)
	require.Contains(t, out, `id="relay-status"`)
	require.Contains(t, out, `@get('/api/status/stream')`)
}

func TestRelayStatus(t *testing.T) {
	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RelayStatus(Unknown()).Render(context.Background(), &buf))
		require.Contains(t, buf.String(), "Connecting")
	})

	t.Run("on air", func(t *testing.T) {
		var buf bytes.Buffer
		s := status.Snapshot{Broadcasting: true, Listeners: 1, Bytes: 2048}
		require.NoError(t, RelayStatus(Known(s)).Render(context.Background(), &buf))
		out := buf.String()
		require.Contains(t, out, `<span class="on-air">On air</span>`)
		require.Contains(t, out, "1 listener<")
		require.Contains(t, out, "2.0 kB relayed")
	})

	t.Run("off air", func(t *testing.T) {
		var buf bytes.Buffer
		s := status.Snapshot{Listeners: 1200}
		require.NoError(t, RelayStatus(Known(s)).Render(context.Background(), &buf))
		out := buf.String()
		require.Contains(t, out, `<span class="off-air">Off air</span>`)
		require.Contains(t, out, "1,200 listeners")
	})
}
