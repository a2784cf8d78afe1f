package content_test

import (
	"reflect"
	"testing"

	"parley/internal/content"
	"parley/internal/domain"
)

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   content.Content
	}{
		{"text", content.Text("hello there")},
		{"file", content.File("a.pdf", "application/pdf", "data:application/pdf;base64,AAAA", 1024)},
		{"album", content.Album([]content.AlbumItem{
			{DataURL: "data:image/png;base64,AAAA", Name: "one.png", Mime: "image/png"},
			{DataURL: "data:image/png;base64,BBBB"},
		}, "holiday")},
		{"album no caption", content.Album([]content.AlbumItem{
			{DataURL: "data:image/jpeg;base64,CCCC"},
		}, "")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := content.Unwrap(content.Wrap(tc.in))
			if !reflect.DeepEqual(got, tc.in) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, tc.in)
			}
		})
	}
}

func TestUnwrap_FallbackIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"just a normal message",
		"payload:",
		"payload:not json at all",
		`payload:{"t":"unknown-kind","text":"x"}`,
		`payload:{"truncated`,
		"payload:[1,2,3]",
	}
	for _, s := range inputs {
		got := content.Unwrap(s)
		if got.T != content.KindText || got.Text != s {
			t.Fatalf("Unwrap(%q) = %+v, want text fallback with original string", s, got)
		}
	}
}

func TestUnwrap_FileEnvelope(t *testing.T) {
	s := `payload:{"t":"file","name":"a.pdf","mime":"application/pdf","dataUrl":"...","size":1024}`
	got := content.Unwrap(s)
	if got.T != content.KindFile {
		t.Fatalf("kind = %q, want file", got.T)
	}
	if got.Name != "a.pdf" || got.Mime != "application/pdf" || got.Size != 1024 {
		t.Fatalf("unexpected file fields: %+v", got)
	}
}

func TestWrap_TextLooksLikeEnvelope(t *testing.T) {
	// A user typing a literal "payload:" prefix must survive the trip.
	in := content.Text(`payload:{"t":"file"}`)
	got := content.Unwrap(content.Wrap(in))
	if got.T != content.KindText || got.Text != in.Text {
		t.Fatalf("got %+v, want original text preserved", got)
	}
}

func msg(id, sender string, typ domain.MessageType, at int64) domain.ChatMessage {
	return domain.ChatMessage{ID: id, SenderID: sender, Type: typ, CreatedAt: at}
}

func TestGroupAlbums(t *testing.T) {
	base := int64(1_700_000_000_000)
	in := []domain.ChatMessage{
		msg("1", "alice", domain.MessageText, base),
		msg("2", "alice", domain.MessageImage, base+1000),
		msg("3", "alice", domain.MessageImage, base+2000),
		msg("4", "bob", domain.MessageImage, base+3000),
		msg("5", "alice", domain.MessageImage, base+10*60*1000), // past the window
	}
	groups := content.GroupAlbums(in)
	if len(groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(groups))
	}
	if !groups[1].IsAlbum() || len(groups[1].Messages) != 2 {
		t.Fatalf("messages 2+3 should form an album, got %+v", groups[1])
	}
	if groups[2].IsAlbum() || groups[3].IsAlbum() {
		t.Fatal("sender change and window expiry must break albums")
	}
}
