// Package websocket streams console lines to websocket clients.
package websocket

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/robowdt/pkg/console"
	fx "github.com/robotalks/robowdt/pkg/framework"
)

// DefaultBacklog is the number of lines buffered per client.
const DefaultBacklog = 64

// Hub fans console lines out to connected clients.
// A client not keeping up loses lines instead of slowing the tasks.
type Hub struct {
	Backlog int

	lock    sync.Mutex
	clients map[chan string]struct{}
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{Backlog: DefaultBacklog}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Emit implements console.Sink.
func (h *Hub) Emit(line console.Line) {
	s := line.String()
	h.lock.Lock()
	defer h.lock.Unlock()
	for ch := range h.clients {
		select {
		case ch <- s:
		default:
		}
	}
}

// Handler returns the websocket handler.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) attach() chan string {
	backlog := h.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	ch := make(chan string, backlog)
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[chan string]struct{})
	}
	h.clients[ch] = struct{}{}
	h.lock.Unlock()
	return ch
}

func (h *Hub) detach(ch chan string) {
	h.lock.Lock()
	delete(h.clients, ch)
	h.lock.Unlock()
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer conn.Close()
	ch := h.attach()
	defer h.detach(ch)
	glog.V(2).Infof("websocket client %s attached", conn.Request().RemoteAddr)

	closed := make(chan struct{})
	go func() {
		io.Copy(io.Discard, conn)
		close(closed)
	}()
	for {
		select {
		case s := <-ch:
			if err := websocket.Message.Send(conn, s); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// Server serves the Hub over HTTP at /log.
type Server struct {
	Addr string
	Hub  *Hub
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/log", s.Hub.Handler())
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("websocket log tail on ws://%s/log", s.Addr)
	err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	if err == http.ErrServerClosed {
		return context.Canceled
	}
	return err
}
