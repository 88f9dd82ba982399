package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"clipforge/internal/domain"
)

type wsFixture struct {
	server *httptest.Server
	url    string
}

// newWSFixture serves one websocket connection and hands it to accept.
func newWSFixture(t *testing.T, accept func(*websocket.Conn, subscribeFrame)) *wsFixture {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		var frame subscribeFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Errorf("read subscribe frame: %v", err)
			return
		}
		accept(conn, frame)
	}))
	t.Cleanup(server.Close)
	return &wsFixture{server: server, url: "ws" + strings.TrimPrefix(server.URL, "http")}
}

func waitEvent(t *testing.T, events <-chan Event) (Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-events:
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}, false
	}
}

func TestSubscribeDeliversFilteredEvents(t *testing.T) {
	fixture := newWSFixture(t, func(conn *websocket.Conn, frame subscribeFrame) {
		if frame.Action != "subscribe" || frame.JobID != "job-1" {
			t.Errorf("subscribe frame = %+v, want subscribe job-1", frame)
		}
		// An event for another job id must not be delivered.
		_ = conn.WriteJSON(Event{JobID: "job-2", Status: domain.JobStatusCompleted})
		_ = conn.WriteJSON(Event{
			JobID:          "job-1",
			Status:         domain.JobStatusProcessingMedia,
			ProgressDetail: &domain.ProgressDetail{Message: "Extracting frames", Step: 2, TotalSteps: 7},
		})
	})

	client, err := NewClient(Options{URL: fixture.url, Token: "test-token"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sub, err := client.Subscribe(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	ev, ok := waitEvent(t, sub.Events())
	if !ok {
		t.Fatalf("events channel closed before delivery")
	}
	if ev.JobID != "job-1" || ev.Status != domain.JobStatusProcessingMedia {
		t.Fatalf("event = %+v, want job-1 processing_media", ev)
	}
	if ev.ProgressDetail == nil || ev.ProgressDetail.TotalSteps != 7 {
		t.Fatalf("progress detail not round-tripped: %+v", ev.ProgressDetail)
	}
}

func TestUnsubscribeIsIdempotentAndClosesEvents(t *testing.T) {
	fixture := newWSFixture(t, func(conn *websocket.Conn, frame subscribeFrame) {
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	client, err := NewClient(Options{URL: fixture.url})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sub, err := client.Subscribe(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()

	if _, ok := waitEvent(t, sub.Events()); ok {
		t.Fatalf("events channel should be closed after unsubscribe")
	}
}

func TestSubscribeClosesEventsWhenServerDrops(t *testing.T) {
	fixture := newWSFixture(t, func(conn *websocket.Conn, frame subscribeFrame) {
		_ = conn.Close()
	})

	client, err := NewClient(Options{URL: fixture.url})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sub, err := client.Subscribe(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if _, ok := waitEvent(t, sub.Events()); ok {
		t.Fatalf("events channel should close when the server drops")
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("NewClient should fail without a url")
	}
}
