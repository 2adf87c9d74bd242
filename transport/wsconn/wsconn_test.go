package wsconn

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/gorilla/websocket"
)

// mockWS is a minimal webSocketConn double, mirroring the mock style used by
// this codebase's other WebSocket-adjacent tests.
type mockWS struct {
	readData        [][]byte
	readIndex       int
	writeData       [][]byte
	closeCalled     bool
	nextReaderErr   error
	writeMessageErr error
}

func (m *mockWS) NextReader() (int, io.Reader, error) {
	if m.nextReaderErr != nil {
		return 0, nil, m.nextReaderErr
	}
	if m.readIndex >= len(m.readData) {
		return 0, nil, io.EOF
	}
	data := m.readData[m.readIndex]
	m.readIndex++
	return websocket.BinaryMessage, bytes.NewReader(data), nil
}

func (m *mockWS) WriteMessage(messageType int, data []byte) error {
	if m.writeMessageErr != nil {
		return m.writeMessageErr
	}
	cp := append([]byte(nil), data...)
	m.writeData = append(m.writeData, cp)
	return nil
}

func (m *mockWS) Close() error {
	m.closeCalled = true
	return nil
}

func TestConnReadSingleMessage(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	c := &Conn{ws: &mockWS{readData: [][]byte{data}}}

	buf := make([]byte, 10)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != 5 || !bytes.Equal(buf[:5], data) {
		t.Fatalf("Read() = %v (n=%d), want %v", buf[:5], n, data)
	}
}

func TestConnReadAdvancesAcrossMessages(t *testing.T) {
	c := &Conn{ws: &mockWS{readData: [][]byte{{1, 2}, {3, 4}}}}

	buf := make([]byte, 10)
	n1, err := c.Read(buf)
	if err != nil || n1 != 2 {
		t.Fatalf("first Read() = (%d, %v), want (2, nil)", n1, err)
	}
	n2, err := c.Read(buf)
	if err != nil || n2 != 2 {
		t.Fatalf("second Read() = (%d, %v), want (2, nil)", n2, err)
	}
	if !bytes.Equal(buf[:2], []byte{3, 4}) {
		t.Fatalf("second Read() data = %v, want [3 4]", buf[:2])
	}
}

func TestConnReadConvertsCloseErrorToEOF(t *testing.T) {
	c := &Conn{ws: &mockWS{nextReaderErr: &websocket.CloseError{Code: websocket.CloseNormalClosure}}}

	_, err := c.Read(make([]byte, 4))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("Read() error = %v, want io.EOF", err)
	}
}

func TestConnWriteSendsOneBinaryMessage(t *testing.T) {
	mock := &mockWS{}
	c := &Conn{ws: mock}

	data := []byte{9, 8, 7}
	n, err := c.Write(data)
	if err != nil || n != 3 {
		t.Fatalf("Write() = (%d, %v), want (3, nil)", n, err)
	}
	if len(mock.writeData) != 1 || !bytes.Equal(mock.writeData[0], data) {
		t.Fatalf("underlying write = %v, want one message %v", mock.writeData, data)
	}
}

func TestConnWritePropagatesError(t *testing.T) {
	c := &Conn{ws: &mockWS{writeMessageErr: errors.New("broken pipe")}}

	_, err := c.Write([]byte{1})
	if err == nil {
		t.Fatal("Write() error = nil, want non-nil")
	}
}

func TestConnClose(t *testing.T) {
	mock := &mockWS{}
	c := &Conn{ws: mock}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !mock.closeCalled {
		t.Fatal("Close() did not close the underlying connection")
	}
}
