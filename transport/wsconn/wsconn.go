// Package wsconn adapts a gorilla/websocket connection to io.ReadWriteCloser
// so secchan.NewEndpoint can run its handshake, datagram, and stream layers
// over a WebSocket transport exactly as it would over a raw TCP net.Conn.
package wsconn

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// webSocketConn is the subset of *websocket.Conn that Conn depends on,
// narrowed out so tests can substitute a mock without opening a real socket.
type webSocketConn interface {
	NextReader() (int, io.Reader, error)
	WriteMessage(int, []byte) error
	Close() error
}

// Conn wraps a WebSocket connection as an io.ReadWriteCloser. Every Write
// call is sent as one binary WebSocket message; Read drains the current
// message reader and transparently moves to the next message once it is
// exhausted, so callers see a plain byte stream rather than message
// boundaries. Reads and writes are each internally serialized, matching the
// one-reader/one-writer-at-a-time contract gorilla/websocket requires.
type Conn struct {
	ws            webSocketConn
	currentReader io.Reader
	readMu        sync.Mutex
	writeMu       sync.Mutex
}

// New wraps an already-established *websocket.Conn.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

var dialer = websocket.Dialer{
	HandshakeTimeout: 10 * time.Second,
}

// Dial opens a WebSocket connection to rawURL (ws:// or wss://) and returns
// it wrapped as an io.ReadWriteCloser.
func Dial(rawURL string, header http.Header) (*Conn, error) {
	ws, _, err := dialer.Dial(rawURL, header)
	if err != nil {
		return nil, fmt.Errorf("wsconn: dial: %w", err)
	}
	return New(ws), nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Accept upgrades an incoming HTTP request to a WebSocket connection and
// returns it wrapped as an io.ReadWriteCloser. The caller's http.Handler is
// responsible for any auth/origin checks before calling Accept.
func Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("wsconn: upgrade: %w", err)
	}
	return New(ws), nil
}

func isCloseErr(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "websocket: close ")
}

// Read implements io.Reader, transparently advancing across message
// boundaries and converting a WebSocket close frame into io.EOF.
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(p) == 0 {
		return 0, nil
	}

	for {
		if c.currentReader == nil {
			_, reader, err := c.ws.NextReader()
			if err != nil {
				if isCloseErr(err) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.currentReader = reader
		}

		n, err := c.currentReader.Read(p)
		if err == io.EOF {
			c.currentReader = nil
			continue
		}
		if isCloseErr(err) {
			return 0, io.EOF
		}
		return n, err
	}
}

// Write sends p as a single binary WebSocket message.
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		if isCloseErr(err) {
			return 0, io.EOF
		}
		return 0, err
	}
	return len(p), nil
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
