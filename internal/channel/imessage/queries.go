package imessage

import (
	"context"
	"database/sql"
	"fmt"
)

const pollBatchSize = 100

// maxRowID returns the current maximum ROWID in the message table, used to
// seed the watermark so history is never replayed.
func maxRowID(ctx context.Context, db *sql.DB) (int64, error) {
	var max sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(ROWID) FROM message`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("query max rowid: %w", err)
	}
	return max.Int64, nil
}

const selectNewMessages = `
SELECT m.ROWID, m.guid, c.chat_identifier, c.group_id, h.id, c.display_name, m.text, m.date, m.cache_has_attachments
FROM message m
JOIN chat_message_join cmj ON cmj.message_id = m.ROWID
JOIN chat c ON c.ROWID = cmj.chat_id
LEFT JOIN handle h ON h.ROWID = m.handle_id
WHERE m.ROWID > ? AND m.is_from_me = 0
ORDER BY m.ROWID ASC
LIMIT ?`

// fetchNewMessages returns rows with ROWID > watermark, ordered ascending,
// per spec.md §4.2's polling-loop step 1.
func fetchNewMessages(ctx context.Context, db *sql.DB, watermark int64) ([]row, error) {
	rs, err := db.QueryContext(ctx, selectNewMessages, watermark, pollBatchSize)
	if err != nil {
		return nil, fmt.Errorf("query new messages: %w", err)
	}
	defer rs.Close()

	var out []row
	for rs.Next() {
		var r row
		var displayName, peerID sql.NullString
		var hasAttachments sql.NullBool
		if err := rs.Scan(&r.rowID, &r.guid, &r.chatIdentifier, &r.groupID, &peerID, &displayName, &r.text, &r.dateNs, &hasAttachments); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		r.peerID = peerID.String
		r.displayName = displayName.String
		r.hasAttachments = hasAttachments.Bool
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return out, nil
}

const selectAttachmentsForMessages = `
SELECT maj.message_id, a.filename, a.mime_type, a.transfer_name, a.total_bytes
FROM message_attachment_join maj
JOIN attachment a ON a.ROWID = maj.attachment_id
WHERE maj.message_id IN (%s)`

// fetchAttachments joins attachment metadata for exactly the given message
// ids (spec.md §4.2's polling-loop step 2: only issued when at least one
// returned row has the "has attachments" bit set).
func fetchAttachments(ctx context.Context, db *sql.DB, messageIDs []int64) (map[int64][]attachmentRow, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(messageIDs)*2)
	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	query := fmt.Sprintf(selectAttachmentsForMessages, string(placeholders))

	rs, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rs.Close()

	out := make(map[int64][]attachmentRow)
	for rs.Next() {
		var a attachmentRow
		var filename, mimeType, transferName sql.NullString
		var totalBytes sql.NullInt64
		if err := rs.Scan(&a.messageID, &filename, &mimeType, &transferName, &totalBytes); err != nil {
			return nil, fmt.Errorf("scan attachment row: %w", err)
		}
		a.filename = filename.String
		a.mimeType = mimeType.String
		a.transferName = transferName.String
		a.totalBytes = totalBytes.Int64
		out[a.messageID] = append(out[a.messageID], a)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachment rows: %w", err)
	}
	return out, nil
}
