package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"parley/internal/domain"
)

const (
	streamReadWait  = 60 * time.Second
	streamPingEvery = 25 * time.Second
	streamRedialMin = time.Second
	streamRedialMax = 30 * time.Second
)

// EventHandler consumes one pushed event. Handlers must not block; slow
// work belongs on the handler's own goroutine.
type EventHandler func(domain.Event)

// Stream consumes the relay's websocket push channel for one device. It
// redials with backoff until the context is cancelled, so a dropped
// connection degrades to polling latency rather than an error the
// caller has to manage.
type Stream struct {
	base     string
	deviceID string
	handler  EventHandler
}

// NewStream builds a stream consumer. base is the relay's HTTP base URL;
// the websocket endpoint is derived from it.
func NewStream(base, deviceID string, handler EventHandler) *Stream {
	return &Stream{base: base, deviceID: deviceID, handler: handler}
}

// Run connects and consumes events until ctx is cancelled. It only
// returns early when the endpoint URL itself is invalid.
func (s *Stream) Run(ctx context.Context) error {
	wsURL, err := s.endpoint()
	if err != nil {
		return err
	}

	backoff := streamRedialMin
	for {
		healthy, err := s.consume(ctx, wsURL)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextRedial(backoff, healthy)
	}
}

// nextRedial grows the redial delay while connections keep failing and
// drops back to the floor once a session has delivered a frame, so a
// long-lived connection that finally breaks reconnects quickly.
func nextRedial(cur time.Duration, healthy bool) time.Duration {
	if healthy {
		return streamRedialMin
	}
	cur *= 2
	if cur > streamRedialMax {
		cur = streamRedialMax
	}
	return cur
}

// consume runs one websocket session to completion. The bool reports
// whether the session got far enough to read at least one frame.
func (s *Stream) consume(ctx context.Context, wsURL string) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial relay stream: %w", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamReadWait))
	})

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	healthy := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return healthy, nil
			}
			return healthy, err
		}
		healthy = true
		_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))

		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			// A malformed frame is the relay's bug; skip it rather than
			// tearing the session down.
			continue
		}
		s.handler(ev)
	}
}

// endpoint rewrites the HTTP base URL into the websocket stream URL for
// this device.
func (s *Stream) endpoint() (string, error) {
	u, err := url.Parse(s.base)
	if err != nil {
		return "", fmt.Errorf("parse relay base: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("relay base must be http(s) or ws(s)")
	}
	u.Path = "/stream/" + url.PathEscape(s.deviceID)
	return u.String(), nil
}
