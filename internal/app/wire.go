package app

import (
	"context"
	"net/http"

	"parley/internal/domain"
	"parley/internal/relay"
	backupsvc "parley/internal/services/backup"
	codecsvc "parley/internal/services/codec"
	identitysvc "parley/internal/services/identity"
	keysharesvc "parley/internal/services/keyshare"
	rostersvc "parley/internal/services/roster"
	vaultsvc "parley/internal/services/vault"
	signalsvc "parley/internal/signal"
	"parley/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	IDs      *identitysvc.Service
	Vault    domain.RoomKeyVault
	Messages domain.MessageService
	Roster   domain.RosterService
	Shares   domain.KeyShareService
	Backup   domain.BackupService
	Signals  *signalsvc.Service
	Relay    domain.RelayClient
	Chats    domain.ChatStore
	HTTP     *http.Client

	base  string
	chats *store.ChatStore
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	// File-based stores
	identityStore := store.NewIdentityFileStore(cfg.Home)
	keyringStore := store.NewKeyringFileStore(cfg.Home)

	chats, err := store.OpenChatStore(cfg.Home)
	if err != nil {
		return nil, err
	}

	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// Relay client (uses provided HTTP client)
	rc := relay.NewHTTP(cfg.RelayURL)
	rc.HTTP = httpClient

	// High-level services
	idSvc := identitysvc.New(identityStore)
	vault := vaultsvc.New(idSvc, keyringStore)
	shares := keysharesvc.New(idSvc, vault, chats, rc, cfg.UserID)
	messages := codecsvc.New(idSvc, vault, chats, rc, cfg.UserID)
	roster := rostersvc.New(chats, rc, shares, cfg.UserID)
	backup := backupsvc.New(idSvc, vault, cfg.Passphrase)
	signals := signalsvc.New(rc, cfg.UserID)

	return &Wire{
		IDs:      idSvc,
		Vault:    vault,
		Messages: messages,
		Roster:   roster,
		Shares:   shares,
		Backup:   backup,
		Signals:  signals,
		Relay:    rc,
		Chats:    chats,
		HTTP:     httpClient,
		base:     cfg.RelayURL,
		chats:    chats,
	}, nil
}

// Stream builds the websocket consumer for this device, feeding pushed
// events into HandleEvent.
func (w *Wire) Stream(ctx context.Context, deviceID string) *relay.Stream {
	return relay.NewStream(w.base, deviceID, func(ev domain.Event) {
		w.HandleEvent(ctx, ev)
	})
}

// HandleEvent dispatches one pushed relay event. Grants install into the
// vault (which unparks any messages waiting on them), message pushes
// trigger a fetch, and signals feed the trackers.
func (w *Wire) HandleEvent(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.EventKeyGrant:
		if ev.Grant != nil {
			_ = w.Vault.Install(*ev.Grant, nil)
		}
	case domain.EventMessage:
		_, _ = w.Messages.Receive(ctx, 0)
	case domain.EventSignal:
		if ev.Signal != nil {
			w.Signals.Observe(*ev.Signal)
		}
	}
}

// Close releases held resources.
func (w *Wire) Close() error {
	w.Signals.Close()
	return w.chats.Close()
}
