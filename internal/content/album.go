package content

import (
	"time"

	"parley/internal/domain"
)

// AlbumWindow is how close together IMAGE messages must land to be
// grouped into one display album.
const AlbumWindow = 2 * time.Minute

// MessageGroup is a display-time run of messages. Runs of consecutive
// IMAGE messages from one sender within AlbumWindow form one group; every
// other message is a group of one. Grouping is presentation only, nothing
// is stored.
type MessageGroup struct {
	Messages []domain.ChatMessage
}

// IsAlbum reports whether the group should render as a photo album.
func (g MessageGroup) IsAlbum() bool {
	return len(g.Messages) > 1
}

// GroupAlbums partitions a decoded message sequence (in arrival order)
// into display groups.
func GroupAlbums(msgs []domain.ChatMessage) []MessageGroup {
	var out []MessageGroup
	for _, m := range msgs {
		if len(out) > 0 && joinable(&out[len(out)-1], m) {
			g := &out[len(out)-1]
			g.Messages = append(g.Messages, m)
			continue
		}
		out = append(out, MessageGroup{Messages: []domain.ChatMessage{m}})
	}
	return out
}

func joinable(g *MessageGroup, m domain.ChatMessage) bool {
	if m.Type != domain.MessageImage {
		return false
	}
	last := g.Messages[len(g.Messages)-1]
	if last.Type != domain.MessageImage || last.SenderID != m.SenderID {
		return false
	}
	gap := time.Duration(m.CreatedAt-last.CreatedAt) * time.Millisecond
	return gap >= 0 && gap <= AlbumWindow
}
