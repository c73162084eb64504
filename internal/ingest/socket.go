// Package ingest accepts browser events over a unix socket. Each
// connection streams newline-delimited JSON envelopes; decoded events are
// forwarded to the dispatcher's event channel, which is the single
// writer for all tracking state.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mtholden/attend/internal/logging"
	"github.com/mtholden/attend/internal/tracker"
)

// Event is one envelope from the event source.
type Event struct {
	Kind      string    `json:"kind"` // "context" or "copy"
	URL       string    `json:"url,omitempty"`
	Domain    string    `json:"domain"`
	Title     string    `json:"title,omitempty"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextEvent converts the envelope for the tracker.
func (e Event) ContextEvent() tracker.ContextEvent {
	return tracker.ContextEvent{
		URL:       e.URL,
		Domain:    e.Domain,
		Title:     e.Title,
		Timestamp: e.Timestamp,
	}
}

// Listener owns the unix socket and the connection goroutines.
type Listener struct {
	socketPath string
	listener   *net.UnixListener
	events     chan<- Event
	wg         sync.WaitGroup
	closed     chan struct{}
}

// NewListener creates a listener that forwards events to the channel.
func NewListener(socketPath string, events chan<- Event) *Listener {
	return &Listener{
		socketPath: socketPath,
		events:     events,
		closed:     make(chan struct{}),
	}
}

// Start binds the socket and begins accepting connections. A stale
// socket file from a dead process is removed; a live one means another
// instance is running.
func (l *Listener) Start() error {
	if _, err := os.Stat(l.socketPath); err == nil {
		conn, err := net.DialTimeout("unix", l.socketPath, time.Second)
		if err == nil {
			conn.Close()
			return fmt.Errorf("socket %s already active, another instance might be running", l.socketPath)
		}
		logging.Info("ingest", "removing stale socket file %s", l.socketPath)
		if err := os.Remove(l.socketPath); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat socket: %w", err)
	}

	addr, err := net.ResolveUnixAddr("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("resolve unix addr: %w", err)
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	l.listener = listener

	l.wg.Add(1)
	go l.acceptLoop()

	logging.Info("ingest", "listening on %s", l.socketPath)
	return nil
}

// Stop closes the socket and waits for connection handlers.
func (l *Listener) Stop() {
	close(l.closed)
	if l.listener != nil {
		l.listener.Close()
	}
	l.wg.Wait()
	os.Remove(l.socketPath)
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.listener.AcceptUnix()
		if err != nil {
			select {
			case <-l.closed:
				return
			default:
				logging.Warn("ingest", "accept: %v", err)
				if ne, ok := err.(net.Error); ok && !ne.Timeout() {
					return
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}
		}
		l.wg.Add(1)
		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(conn *net.UnixConn) {
	defer l.wg.Done()
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	for {
		var ev Event
		if err := decoder.Decode(&ev); err != nil {
			if err != io.EOF {
				logging.Debug("ingest", "decode: %v", err)
			}
			return
		}
		if ev.Kind == "" || (ev.Kind == "context" && ev.Domain == "") {
			logging.Debug("ingest", "dropping malformed event")
			continue
		}

		select {
		case l.events <- ev:
		case <-l.closed:
			return
		case <-time.After(time.Second):
			logging.Warn("ingest", "event channel full, dropping %s event", ev.Kind)
		}
	}
}
