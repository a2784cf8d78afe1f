package app

import "net/http"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string       // config directory, e.g. $HOME/.parley
	RelayURL   string       // relay base URL, e.g. http://127.0.0.1:8080
	UserID     string       // acting user, as registered with the relay
	Passphrase string       // protects keys at rest under Home
	HTTP       *http.Client // optional; defaults to http.DefaultClient
}
