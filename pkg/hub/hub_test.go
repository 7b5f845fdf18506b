package hub

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

type written struct {
	typ  int
	data []byte
}

// fakeConn blocks reads until closed and records writes.
type fakeConn struct {
	closed    chan struct{}
	writes    chan written
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{}), writes: make(chan written, 64)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, io.EOF
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	default:
	}
	f.writes <- written{typ: t, data: data}
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func nextWrite(t *testing.T, c *fakeConn) written {
	t.Helper()
	select {
	case w := <-c.writes:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a write")
		return written{}
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, "hub start", h.IsRunning)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_Broadcast(t *testing.T) {
	h, _ := startHub(t)
	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	waitFor(t, "registration", func() bool { return h.ClientCount() == 1 })

	if c.ID == "" {
		t.Error("client should have an ID")
	}

	if err := h.BroadcastJSON(map[string]int{"x": 1}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	w := nextWrite(t, conn)
	if w.typ != websocket.TextMessage || string(w.data) != `{"x":1}` {
		t.Errorf("got %d %q", w.typ, w.data)
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	w = nextWrite(t, conn)
	if w.typ != websocket.BinaryMessage || len(w.data) != 2 {
		t.Errorf("got %d %v", w.typ, w.data)
	}
}

func TestHub_Disconnect(t *testing.T) {
	h, _ := startHub(t)
	conn := newFakeConn()
	c := NewClient(h, conn)
	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()
	waitFor(t, "registration", func() bool { return h.ClientCount() == 1 })

	conn.Close()
	<-done
	waitFor(t, "unregistration", func() bool { return h.ClientCount() == 0 })
}

func TestHub_Shutdown(t *testing.T) {
	h, cancel := startHub(t)
	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	waitFor(t, "registration", func() bool { return h.ClientCount() == 1 })

	cancel()
	waitFor(t, "hub stop", func() bool { return !h.IsRunning() })

	w := nextWrite(t, conn)
	if w.typ != websocket.CloseMessage {
		t.Errorf("last write type = %d, want close", w.typ)
	}

	// Late clients start closed instead of blocking.
	late := NewClient(h, newFakeConn())
	if _, ok := <-late.send; ok {
		t.Error("late client send channel should be closed")
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	h := New("idle", nil)
	for i := 0; i < broadcastBuffer+10; i++ {
		h.BroadcastBinary([]byte{1})
	}
	if h.ClientCount() != 0 || h.Name() != "idle" {
		t.Error("unexpected hub state")
	}
}
