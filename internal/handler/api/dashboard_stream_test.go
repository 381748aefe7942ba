package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStream_PushesView(t *testing.T) {
	srv := httptest.NewServer(newTestAPI(t, liveHolder(t), nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, b, err := conn.ReadMessage()
		require.NoError(t, err)

		var view map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(b, &view))
		assert.Contains(t, view, "timeSeries")
		assert.Contains(t, view, "riskDistribution")
	}
}
