package codec_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"parley/internal/content"
	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/services/codec"
	"parley/internal/services/identity"
	"parley/internal/services/vault"
	"parley/internal/store"
)

type fakeRelay struct {
	domain.RelayClient // panics on anything not stubbed below

	mu    sync.Mutex
	sent  []domain.CipherEnvelope
	queue []domain.CipherEnvelope
	acked int
}

func (f *fakeRelay) SendEnvelope(_ context.Context, env domain.CipherEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeRelay) FetchEnvelopes(_ context.Context, _ string, limit int) ([]domain.CipherEnvelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.queue) {
		limit = len(f.queue)
	}
	out := make([]domain.CipherEnvelope, limit)
	copy(out, f.queue[:limit])
	return out, nil
}

func (f *fakeRelay) AckEnvelopes(_ context.Context, _ string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if count > len(f.queue) {
		count = len(f.queue)
	}
	f.queue = f.queue[count:]
	f.acked += count
	return nil
}

type fixture struct {
	svc   *codec.Service
	vault *vault.Service
	chats *store.ChatStore
	relay *fakeRelay
	id    domain.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	home := t.TempDir()

	ids := identity.New(store.NewIdentityFileStore(home))
	id, err := ids.EnsureIdentity("pass")
	if err != nil {
		t.Fatalf("ensure identity: %v", err)
	}
	v := vault.New(ids, store.NewKeyringFileStore(home))

	chats, err := store.OpenChatStore(home)
	if err != nil {
		t.Fatalf("open chat store: %v", err)
	}
	t.Cleanup(func() { _ = chats.Close() })

	relay := &fakeRelay{}
	return &fixture{
		svc:   codec.New(ids, v, chats, relay, "alice"),
		vault: v,
		chats: chats,
		relay: relay,
		id:    id,
	}
}

func (f *fixture) seedGroup(t *testing.T, convID string) {
	t.Helper()
	err := f.chats.UpsertConversation(domain.Conversation{
		ID:   convID,
		Type: domain.ConversationGroup,
		Name: "test group",
		Members: []domain.Member{
			{UserID: "alice", Role: domain.RoleOwner, AddedAt: 1},
			{UserID: "bob", Role: domain.RoleMember, AddedAt: 1},
		},
	})
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
}

// sealEnv builds an inbound envelope the way a peer device would.
func sealEnv(t *testing.T, key domain.RoomKey, convID, senderID, plaintext string) domain.CipherEnvelope {
	t.Helper()
	return sealEnvID(t, key, convID, senderID, uuid.New().String(), plaintext)
}

// sealEnvID is sealEnv with a caller-chosen message ID, for peer edits
// that re-seal under the original ID.
func sealEnvID(t *testing.T, key domain.RoomKey, convID, senderID, msgID, plaintext string) domain.CipherEnvelope {
	t.Helper()
	env := domain.CipherEnvelope{
		V:              domain.EnvelopeVersion,
		MessageID:      msgID,
		ConversationID: convID,
		SenderID:       senderID,
		Type:           domain.MessageText,
		Timestamp:      time.Now().UnixMilli(),
	}
	ad := []byte(env.ConversationID + "|" + env.MessageID + "|" + env.SenderID + "|" + string(env.Type))
	nonce, cipher, err := crypto.SealMessage(key, []byte(plaintext), ad)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	env.Nonce = nonce
	env.Cipher = cipher
	return env
}

func TestEncodeWithoutKey(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Encode("conv-1", "hi", domain.MessageText); !errors.Is(err, domain.ErrMissingRoomKey) {
		t.Fatalf("err = %v, want ErrMissingRoomKey", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := newFixture(t)
	key, _ := crypto.NewRoomKey()
	if err := f.vault.Put("conv-1", key); err != nil {
		t.Fatalf("put key: %v", err)
	}

	env, err := f.svc.Encode("conv-1", "secret hello", domain.MessageText)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if env.V != domain.EnvelopeVersion || env.MessageID == "" || env.SenderID != "alice" {
		t.Fatalf("bad envelope header: %+v", env)
	}

	msg, err := f.svc.Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Plaintext != "secret hello" || msg.SenderID != "alice" || msg.ID != env.MessageID {
		t.Fatalf("round trip mismatch: %+v", msg)
	}
}

func TestDecodeRejectsTamperAndVersion(t *testing.T) {
	f := newFixture(t)
	key, _ := crypto.NewRoomKey()
	_ = f.vault.Put("conv-1", key)

	env, err := f.svc.Encode("conv-1", "hello", domain.MessageText)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tampered := env
	tampered.Cipher = append([]byte(nil), env.Cipher...)
	tampered.Cipher[0] ^= 0xff
	if _, err := f.svc.Decode(tampered); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("tampered err = %v, want ErrDecodeFailed", err)
	}

	// Re-binding the envelope to another sender must also fail: the
	// header is authenticated, not just the body.
	rebound := env
	rebound.SenderID = "mallory"
	if _, err := f.svc.Decode(rebound); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("rebound err = %v, want ErrDecodeFailed", err)
	}

	wrongVersion := env
	wrongVersion.V = 99
	if _, err := f.svc.Decode(wrongVersion); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("version err = %v, want ErrDecodeFailed", err)
	}
}

func TestSendPostsAndCaches(t *testing.T) {
	f := newFixture(t)
	f.seedGroup(t, "conv-1")
	key, _ := crypto.NewRoomKey()
	_ = f.vault.Put("conv-1", key)

	msg, err := f.svc.Send(context.Background(), "conv-1", "on my way", domain.MessageText)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(f.relay.sent) != 1 || f.relay.sent[0].MessageID != msg.ID {
		t.Fatalf("relay got %d envelopes", len(f.relay.sent))
	}

	cached, err := f.chats.Messages("conv-1", 10, 0)
	if err != nil || len(cached) != 1 {
		t.Fatalf("cached = %v (%v)", cached, err)
	}
	conv, err := f.chats.Conversation("conv-1")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if conv.LastPreview != "on my way" {
		t.Fatalf("preview = %q", conv.LastPreview)
	}
	if conv.Unread != 0 {
		t.Fatalf("own message bumped unread to %d", conv.Unread)
	}
}

func TestReceiveParksMissingKeyAndAcksPrefix(t *testing.T) {
	f := newFixture(t)
	f.seedGroup(t, "conv-a")
	f.seedGroup(t, "conv-b")

	keyA, _ := crypto.NewRoomKey()
	keyB, _ := crypto.NewRoomKey()
	_ = f.vault.Put("conv-a", keyA)
	// conv-b's key has not arrived yet.

	f.relay.queue = []domain.CipherEnvelope{
		sealEnv(t, keyA, "conv-a", "bob", "first"),
		sealEnv(t, keyB, "conv-b", "bob", "locked"),
		sealEnv(t, keyA, "conv-a", "bob", "third"),
	}

	msgs, err := f.svc.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Plaintext != "first" || msgs[1].Plaintext != "third" {
		t.Fatalf("decoded = %+v", msgs)
	}
	// Only the run before the parked envelope may be acked, or the
	// relay would drop a message we have not read yet.
	if f.relay.acked != 1 {
		t.Fatalf("acked = %d, want 1", f.relay.acked)
	}

	// The key arriving later releases the parked envelope.
	if err := f.vault.Put("conv-b", keyB); err != nil {
		t.Fatalf("put conv-b key: %v", err)
	}
	got, err := f.chats.Messages("conv-b", 10, 0)
	if err != nil || len(got) != 1 || got[0].Plaintext != "locked" {
		t.Fatalf("parked message not applied: %v (%v)", got, err)
	}
	conv, _ := f.chats.Conversation("conv-b")
	if conv.Unread != 1 {
		t.Fatalf("unread = %d, want 1", conv.Unread)
	}
}

func TestReceiveSkipsUndecodable(t *testing.T) {
	f := newFixture(t)
	f.seedGroup(t, "conv-a")
	key, _ := crypto.NewRoomKey()
	_ = f.vault.Put("conv-a", key)

	bad := sealEnv(t, key, "conv-a", "bob", "garbled")
	bad.Cipher[0] ^= 0xff

	f.relay.queue = []domain.CipherEnvelope{
		bad,
		sealEnv(t, key, "conv-a", "bob", "still here"),
	}

	msgs, err := f.svc.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Plaintext != "still here" {
		t.Fatalf("decoded = %+v", msgs)
	}
	// The failed envelope is consumed, not retried forever.
	if f.relay.acked != 2 {
		t.Fatalf("acked = %d, want 2", f.relay.acked)
	}
}

func TestReceiveRedeliveryKeepsUnreadStable(t *testing.T) {
	f := newFixture(t)
	f.seedGroup(t, "conv-a")
	key, _ := crypto.NewRoomKey()
	_ = f.vault.Put("conv-a", key)

	env := sealEnv(t, key, "conv-a", "bob", "hello again")
	f.relay.queue = []domain.CipherEnvelope{env}

	if _, err := f.svc.Receive(context.Background(), 10); err != nil {
		t.Fatalf("receive: %v", err)
	}
	// The relay may replay an already-acked envelope after a reconnect.
	f.relay.queue = []domain.CipherEnvelope{env}
	if _, err := f.svc.Receive(context.Background(), 10); err != nil {
		t.Fatalf("receive replay: %v", err)
	}

	conv, err := f.chats.Conversation("conv-a")
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	if conv.Unread != 1 {
		t.Fatalf("unread = %d after replay, want 1", conv.Unread)
	}
	msgs, _ := f.chats.Messages("conv-a", 10, 0)
	if len(msgs) != 1 {
		t.Fatalf("cached %d copies, want 1", len(msgs))
	}
	if msgs[0].EditedAt != 0 {
		t.Fatalf("replay of an identical body marked the message edited: %+v", msgs[0])
	}
}

func TestReceiveAppliesPeerEdit(t *testing.T) {
	f := newFixture(t)
	f.seedGroup(t, "conv-a")
	key, _ := crypto.NewRoomKey()
	_ = f.vault.Put("conv-a", key)

	original := sealEnv(t, key, "conv-a", "bob", "draft")
	f.relay.queue = []domain.CipherEnvelope{original}
	if _, err := f.svc.Receive(context.Background(), 10); err != nil {
		t.Fatalf("receive: %v", err)
	}

	// Bob edits: same message ID, new body.
	edit := sealEnvID(t, key, "conv-a", "bob", original.MessageID, "final")
	f.relay.queue = []domain.CipherEnvelope{edit}
	if _, err := f.svc.Receive(context.Background(), 10); err != nil {
		t.Fatalf("receive edit: %v", err)
	}

	msgs, err := f.chats.Messages("conv-a", 10, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("cached = %+v (%v)", msgs, err)
	}
	if msgs[0].Plaintext != "final" {
		t.Fatalf("plaintext = %q, want edited body", msgs[0].Plaintext)
	}
	if msgs[0].EditedAt == 0 {
		t.Fatal("edit did not stamp edited_at")
	}
	conv, _ := f.chats.Conversation("conv-a")
	if conv.Unread != 1 {
		t.Fatalf("unread = %d, want 1 (edits do not re-count)", conv.Unread)
	}
}

func TestEditIsSenderScoped(t *testing.T) {
	f := newFixture(t)
	f.seedGroup(t, "conv-1")
	key, _ := crypto.NewRoomKey()
	_ = f.vault.Put("conv-1", key)

	msg, err := f.svc.Send(context.Background(), "conv-1", "typo", domain.MessageText)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := f.svc.Edit(context.Background(), "conv-1", msg.ID, "fixed"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	cached, _ := f.chats.Messages("conv-1", 10, 0)
	if len(cached) != 1 || cached[0].Plaintext != "fixed" || cached[0].EditedAt == 0 {
		t.Fatalf("edit not applied: %+v", cached)
	}
	// The edit goes back out under the same message ID.
	last := f.relay.sent[len(f.relay.sent)-1]
	if last.MessageID != msg.ID {
		t.Fatalf("edit posted under new id %q", last.MessageID)
	}

	// A message from someone else cannot be edited from this device.
	theirs := domain.ChatMessage{
		ID:             uuid.New().String(),
		ConversationID: "conv-1",
		SenderID:       "bob",
		Type:           domain.MessageText,
		Plaintext:      "bob's words",
		CreatedAt:      time.Now().UnixMilli(),
	}
	if _, err := f.chats.SaveMessage(theirs); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.svc.Edit(context.Background(), "conv-1", theirs.ID, "hijacked"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPreview(t *testing.T) {
	cases := []struct {
		name string
		msg  domain.ChatMessage
		want string
	}{
		{
			name: "plain text",
			msg:  domain.ChatMessage{Type: domain.MessageText, Plaintext: "hello there"},
			want: "hello there",
		},
		{
			name: "image",
			msg:  domain.ChatMessage{Type: domain.MessageImage, Plaintext: "data:image/png;base64,AAAA"},
			want: "Photo",
		},
		{
			name: "file envelope",
			msg: domain.ChatMessage{
				Type:      domain.MessageText,
				Plaintext: content.Wrap(content.File("report.pdf", "application/pdf", "data:application/pdf;base64,AA==", 1234)),
			},
			want: "report.pdf",
		},
		{
			name: "album without caption",
			msg: domain.ChatMessage{
				Type:      domain.MessageText,
				Plaintext: content.Wrap(content.Album([]content.AlbumItem{{DataURL: "data:image/png;base64,AA=="}}, "")),
			},
			want: "Album",
		},
		{
			// The 80-byte cap lands mid-rune here; the cut must back
			// off to the previous boundary instead of emitting half a
			// code point.
			name: "long text with multibyte tail",
			msg: domain.ChatMessage{
				Type:      domain.MessageText,
				Plaintext: strings.Repeat("a", 79) + "é" + strings.Repeat("x", 40),
			},
			want: strings.Repeat("a", 79),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := codec.Preview(tc.msg); got != tc.want {
				t.Fatalf("Preview = %q, want %q", got, tc.want)
			}
		})
	}
}
