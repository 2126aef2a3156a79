package database

import (
	"time"
)

const messageColumns = "m.id, m.room_id, m.sender_id, a.username, m.content, m.type, " +
	"m.media_url, m.media_mime_type, m.media_size, m.media_filename, m.sent_at, m.deleted_at"

func (db *PgStudyChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRow(
		"WITH inserted AS ("+
			"INSERT INTO messages (room_id, sender_id, content, type, media_url, media_mime_type, media_size, media_filename, sent_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING *) "+
			"SELECT "+messageColumns+" FROM inserted m JOIN accounts a ON a.id = m.sender_id",
		params.RoomId,
		params.SenderId,
		params.Content,
		params.Type,
		params.MediaUrl,
		params.MediaMimeType,
		params.MediaSize,
		params.MediaFilename,
		time.Now().UTC(),
	)

	return scanMessage(row)
}

func scanMessage(row scanner) (Message, error) {
	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.SenderName,
		&msg.Content,
		&msg.Type,
		&msg.MediaUrl,
		&msg.MediaMimeType,
		&msg.MediaSize,
		&msg.MediaFilename,
		&msg.SentAt,
		&msg.DeletedAt,
	)

	return msg, translateError(err)
}

// GetMessage returns the message whether or not it is tombstoned. Callers
// that must exclude deleted messages check DeletedAt.
func (db *PgStudyChatRepository) GetMessage(messageId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT "+messageColumns+" FROM messages m JOIN accounts a ON a.id = m.sender_id "+
			"WHERE m.id = $1 LIMIT 1",
		messageId,
	)

	return scanMessage(row)
}

// ListMessages returns non-tombstoned messages in ascending send order.
func (db *PgStudyChatRepository) ListMessages(roomId, limit, offset int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages m JOIN accounts a ON a.id = m.sender_id "+
			"WHERE m.room_id = $1 AND m.deleted_at IS NULL "+
			"ORDER BY m.sent_at ASC, m.id ASC LIMIT $2 OFFSET $3",
		roomId,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(
			&msg.Id,
			&msg.RoomId,
			&msg.SenderId,
			&msg.SenderName,
			&msg.Content,
			&msg.Type,
			&msg.MediaUrl,
			&msg.MediaMimeType,
			&msg.MediaSize,
			&msg.MediaFilename,
			&msg.SentAt,
			&msg.DeletedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// SoftDeleteMessage tombstones the message. Deleting an already tombstoned
// message returns ErrNotFound, which keeps deletes idempotent at the API in
// the sense that the message is simply gone.
func (db *PgStudyChatRepository) SoftDeleteMessage(messageId int) error {
	res, err := db.conn.Exec(
		"UPDATE messages SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL",
		messageId,
		time.Now().UTC(),
	)
	if err != nil {
		return translateError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
