// Package content implements the rich-content sub-protocol carried inside
// decrypted TEXT messages: a "payload:" prefix followed by a JSON tagged
// union. Anything that does not parse degrades to plain text, so legacy
// and non-enveloped plaintext always renders.
package content

import (
	"encoding/json"
	"strings"
)

// Prefix marks an enveloped payload inside a text message.
const Prefix = "payload:"

// Kind tags a content variant.
type Kind string

const (
	KindText  Kind = "text"
	KindFile  Kind = "file"
	KindAlbum Kind = "album"
)

// AlbumItem is one entry of an album.
type AlbumItem struct {
	DataURL string `json:"dataUrl"`
	Name    string `json:"name,omitempty"`
	Mime    string `json:"mime,omitempty"`
}

// Content is the tagged union carried inside TEXT messages. Exactly the
// fields for the active Kind are populated.
type Content struct {
	T Kind `json:"t"`

	// KindText
	Text string `json:"text,omitempty"`

	// KindFile
	Name    string `json:"name,omitempty"`
	Mime    string `json:"mime,omitempty"`
	DataURL string `json:"dataUrl,omitempty"`
	Size    int64  `json:"size,omitempty"`

	// KindAlbum
	Items   []AlbumItem `json:"items,omitempty"`
	Caption string      `json:"caption,omitempty"`
}

// Text builds a plain text content value.
func Text(s string) Content { return Content{T: KindText, Text: s} }

// File builds a file content value.
func File(name, mime, dataURL string, size int64) Content {
	return Content{T: KindFile, Name: name, Mime: mime, DataURL: dataURL, Size: size}
}

// Album builds an album content value.
func Album(items []AlbumItem, caption string) Content {
	return Content{T: KindAlbum, Items: items, Caption: caption}
}

// Wrap serialises content into the plaintext string sent over the wire.
// Plain text is passed through unless it would be mistaken for an
// envelope, in which case it is wrapped explicitly.
func Wrap(c Content) string {
	if c.T == KindText && !strings.HasPrefix(c.Text, Prefix) {
		return c.Text
	}
	b, err := json.Marshal(c)
	if err != nil {
		// Content is plain data; marshal cannot realistically fail.
		// Fall back to the raw text rather than dropping the message.
		return c.Text
	}
	return Prefix + string(b)
}

// Unwrap parses a decrypted plaintext string. It is total: any string
// lacking the prefix, or failing to parse, comes back as plain text.
func Unwrap(s string) Content {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return Text(s)
	}
	var c Content
	if err := json.Unmarshal([]byte(rest), &c); err != nil {
		return Text(s)
	}
	switch c.T {
	case KindText, KindFile, KindAlbum:
		return c
	default:
		return Text(s)
	}
}
