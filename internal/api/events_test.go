package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodstreet/pkg/model"
)

func readMessage(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestEventHub_RelaysSessionEvents(t *testing.T) {
	s := newFakeSession()
	hub := NewEventHub(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewMux(Handlers{Events: hub}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	assert.JSONEq(t, `"init"`, string(first["type"]))
	assert.Contains(t, string(first["data"]), `"active_poi_id":"oc-oanh"`)

	s.events <- model.Event{Type: model.EventActivePOIChanged, PreviousPOIID: "oc-oanh", POIID: "bun-mam"}
	msg := readMessage(t, conn)
	assert.JSONEq(t, `"active_poi_changed"`, string(msg["type"]))

	var ev model.Event
	require.NoError(t, json.Unmarshal(msg["data"], &ev))
	assert.Equal(t, "bun-mam", ev.POIID)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestEventHub_ClientDisconnect(t *testing.T) {
	hub := NewEventHub(newFakeSession())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	readMessage(t, conn)
	require.Equal(t, 1, hub.ClientCount())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
