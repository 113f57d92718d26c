package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/robowdt/pkg/console"
)

func TestHubStreamsLines(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, hub.Clients())

	hub.Emit(console.Line{Owner: "o", Module: console.ModSystem, Message: "booted"})
	var s string
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, websocket.Message.Receive(conn, &s))
	assert.Equal(t, "{o} [SISTEMA] booted", s)
}

func TestHubDropsForSlowClients(t *testing.T) {
	hub := &Hub{Backlog: 1}
	ch := hub.attach()
	for i := 0; i < 5; i++ {
		hub.Emit(console.Line{Message: "x"})
	}
	assert.Len(t, ch, 1)
	hub.detach(ch)
	assert.Equal(t, 0, hub.Clients())
}
