package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"parley/internal/domain"
	"parley/internal/relay"
)

func TestFetchEnvelopes(t *testing.T) {
	want := []domain.CipherEnvelope{
		{V: 1, MessageID: "m-1", ConversationID: "c-1", SenderID: "alice"},
		{V: 1, MessageID: "m-2", ConversationID: "c-1", SenderID: "bob"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/envelopes/dev-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q, want 50", got)
		}
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	c := relay.NewHTTP(srv.URL)
	got, err := c.FetchEnvelopes(context.Background(), "dev-1", 50)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].MessageID != "m-1" || got[1].SenderID != "bob" {
		t.Fatalf("envelopes = %+v", got)
	}
}

func TestPostErrorsCarryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := relay.NewHTTP(srv.URL)
	err := c.SendEnvelope(context.Background(), domain.CipherEnvelope{V: 1})
	if err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestAckEnvelopesBody(t *testing.T) {
	var gotCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/envelopes/dev-1/ack" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Count int `json:"count"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotCount = body.Count
	}))
	defer srv.Close()

	c := relay.NewHTTP(srv.URL)
	if err := c.AckEnvelopes(context.Background(), "dev-1", 3); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if gotCount != 3 {
		t.Fatalf("count = %d, want 3", gotCount)
	}
}

func TestSetParticipantRolePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	c := relay.NewHTTP(srv.URL)
	if err := c.SetParticipantRole(context.Background(), "c-1", "bob", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if gotPath != "/conversations/c-1/members/bob/role" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestDeletePinUsesDelete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
	}))
	defer srv.Close()

	c := relay.NewHTTP(srv.URL)
	if err := c.DeletePin(context.Background(), "c-1", "m-1"); err != nil {
		t.Fatalf("delete pin: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/conversations/c-1/pins/m-1" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
}
