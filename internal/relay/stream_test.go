package relay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"parley/internal/domain"
	"parley/internal/relay"
)

func TestStreamDeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/dev-1" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ev := domain.Event{
			Kind: domain.EventSignal,
			Signal: &domain.Signal{
				Kind:           domain.SignalTyping,
				ConversationID: "c-1",
				From:           "bob",
				Typing:         &domain.TypingSignal{IsTyping: true},
			},
		}
		_ = conn.WriteJSON(ev)
		// Hold the session open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	events := make(chan domain.Event, 1)
	stream := relay.NewStream(srv.URL, "dev-1", func(ev domain.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stream.Run(ctx) }()

	select {
	case ev := <-events:
		if ev.Kind != domain.EventSignal || ev.Signal == nil || ev.Signal.From != "bob" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestStreamRejectsBadBase(t *testing.T) {
	stream := relay.NewStream("ftp://relay.example", "dev-1", func(domain.Event) {})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := stream.Run(ctx); err == nil {
		t.Fatal("expected scheme error")
	}
}
