package imessage

import (
	"database/sql"
	"strings"

	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/util/sanitize"
)

// row is one message joined against its chat and sender handle.
type row struct {
	rowID          int64
	guid           string
	chatIdentifier string
	groupID        sql.NullString
	peerID         string
	displayName    string
	text           string
	dateNs         int64
	hasAttachments bool
}

// attachmentRow is one attachment joined for a given message id.
type attachmentRow struct {
	messageID    int64
	filename     string
	mimeType     string
	transferName string
	totalBytes   int64
}

// mediaKindFromMIME derives a MediaKind from a MIME type prefix
// (spec.md §4.2 normalization table).
func mediaKindFromMIME(mime string) envelope.MediaKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return envelope.MediaImage
	case strings.HasPrefix(mime, "video/"):
		return envelope.MediaVideo
	case strings.HasPrefix(mime, "audio/"):
		return envelope.MediaAudio
	default:
		return envelope.MediaDocument
	}
}

// normalize converts a row plus its (possibly empty) attachments into an
// ingress envelope. It returns ok=false when the message carries neither
// text nor any attachment with a filename, per spec.md §4.2: "Return null
// iff text is null/empty AND no attachments with filenames."
func normalize(r row, attachments []attachmentRow) (envelope.Ingress, bool) {
	var media []envelope.IngressMedia
	for _, a := range attachments {
		if a.filename == "" {
			continue
		}
		media = append(media, envelope.IngressMedia{
			Kind:     mediaKindFromMIME(a.mimeType),
			Ref:      a.filename,
			MimeType: a.mimeType,
			FileName: a.transferName,
			Size:     a.totalBytes,
		})
	}

	if r.text == "" && len(media) == 0 {
		return envelope.Ingress{}, false
	}

	// Inbound isGroup is a distinct rule from the outbound one in
	// bridge.go: it reads the chat's group-id column directly rather than
	// pattern-matching chat_identifier (spec.md §4.2 normalization table).
	isGroup := r.groupID.Valid

	in := envelope.Ingress{
		Channel:           envelope.ChanneliMessage,
		PlatformMessageID: r.guid,
		ConversationID:    r.chatIdentifier,
		PeerID:            r.peerID,
		IsGroup:           isGroup,
		Text:              r.text,
		Timestamp:         toUnixTime(r.dateNs),
		Media:             media,
	}
	if isGroup {
		in.GroupName = r.displayName
	}
	sanitize.Envelope(&in)
	return in, true
}
