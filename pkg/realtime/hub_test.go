package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"appointments/pkg/logger"
	"appointments/pkg/model"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Subscribers() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscribers = %d, want %d", hub.Subscribers(), want)
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame struct {
		Event string                 `json:"event"`
		Data  model.BookingConfirmed `json:"data"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return Frame{Event: frame.Event, Data: frame.Data}
}

func TestHub_BroadcastReachesEverySubscriber(t *testing.T) {
	hub := NewHub(logger.Discard())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	first := dial(t, server)
	second := dial(t, server)
	waitForSubscribers(t, hub, 2)

	payload := model.BookingConfirmed{Name: "Ada", Datetime: "2024-05-01T10:00", Phone: "5551234567"}
	if err := hub.Broadcast(model.EventBookingConfirmed, payload); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		frame := readFrame(t, conn)
		if frame.Event != model.EventBookingConfirmed {
			t.Errorf("event = %q", frame.Event)
		}
		if frame.Data != payload {
			t.Errorf("data = %+v, want %+v", frame.Data, payload)
		}
	}
}

func TestHub_FrameHasNoEmail(t *testing.T) {
	hub := NewHub(logger.Discard())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	booking := &model.Booking{Name: "Ada", Email: "ada@example.com", Phone: "5551234567", Datetime: "x"}
	if err := hub.Broadcast(model.EventBookingConfirmed, booking.Confirmed()); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "ada@example.com") {
		t.Errorf("frame leaks email: %s", data)
	}
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	hub := NewHub(logger.Discard())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	if err := hub.Broadcast(model.EventBookingConfirmed, model.BookingConfirmed{Name: "early"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	if err := hub.Broadcast(model.EventBookingConfirmed, model.BookingConfirmed{Name: "late"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	frame := readFrame(t, conn)
	if got := frame.Data.(model.BookingConfirmed).Name; got != "late" {
		t.Errorf("first frame = %q, want late", got)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(logger.Discard())
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	conn.Close()
	waitForSubscribers(t, hub, 0)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(logger.Discard())
	slow := &subscriber{frames: make(chan []byte, 1)}
	if !hub.add(slow) {
		t.Fatal("add failed")
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = hub.Broadcast(model.EventBookingConfirmed, model.BookingConfirmed{Name: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full subscriber")
	}
	if len(slow.frames) != 1 {
		t.Errorf("queued = %d, want 1", len(slow.frames))
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(logger.Discard())
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	hub.Close()
	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed")
	}

	if err := hub.Broadcast(model.EventBookingConfirmed, model.BookingConfirmed{}); !errors.Is(err, ErrHubClosed) {
		t.Errorf("expected ErrHubClosed, got %v", err)
	}
}

func TestHub_RejectsAfterClose(t *testing.T) {
	hub := NewHub(logger.Discard())
	server := httptest.NewServer(hub)
	defer server.Close()
	hub.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail after Close")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("response = %v, want 503", resp)
	}
}

func TestHub_AllowedOrigin(t *testing.T) {
	hub := NewHub(logger.Discard(), WithAllowedOrigin("https://app.example.com"))
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("expected handshake from foreign origin to fail")
	}

	header = map[string][]string{"Origin": {"https://app.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial with allowed origin: %v", err)
	}
	conn.Close()
}
