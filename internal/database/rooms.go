package database

import (
	"database/sql"
	"errors"
	"time"
)

const roomColumns = "id, external_id, name, kind, project_id, course_id, creator_id, color, created_at, updated_at"

func scanRoom(row *sql.Row) (Room, error) {
	var room Room
	err := row.Scan(
		&room.Id,
		&room.ExternalId,
		&room.Name,
		&room.Kind,
		&room.ProjectId,
		&room.CourseId,
		&room.CreatorId,
		&room.Color,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, translateError(err)
}

// CreateRoom inserts the room and the creator's membership in one transaction.
// The creator's authority derives from rooms.creator_id; the membership row is
// bootstrapped as an admin so the creator appears in member listings.
func (db *PgStudyChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res := tx.QueryRow(
		"INSERT INTO rooms (external_id, name, kind, project_id, course_id, creator_id, color, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING "+roomColumns,
		params.ExternalId,
		params.Name,
		params.Kind,
		params.ProjectId,
		params.CourseId,
		params.CreatorId,
		params.Color,
		now,
	)

	var room Room
	room, err = scanRoom(res)
	if err != nil {
		return Room{}, err
	}

	_, err = tx.Exec(
		"INSERT INTO room_members (room_id, account_id, role, status, joined_at, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5, $5)",
		room.Id,
		params.CreatorId,
		RoleAdmin,
		StatusActive,
		now,
	)
	if err != nil {
		err = translateError(err)
		return Room{}, err
	}

	if err = tx.Commit(); err != nil {
		return Room{}, translateError(err)
	}

	return room, nil
}

func (db *PgStudyChatRepository) GetRoomByExternalId(externalId string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT "+roomColumns+" FROM rooms WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanRoom(row)
}

func (db *PgStudyChatRepository) UpdateRoom(params UpdateRoomParams) (Room, error) {
	row := db.conn.QueryRow(
		"UPDATE rooms SET name = $2, project_id = $3, course_id = $4, color = $5, updated_at = $6 "+
			"WHERE id = $1 RETURNING "+roomColumns,
		params.RoomId,
		params.Name,
		params.ProjectId,
		params.CourseId,
		params.Color,
		time.Now().UTC(),
	)

	return scanRoom(row)
}

// DeleteRoom removes the room and cascades memberships, join requests and
// messages in a single transaction.
func (db *PgStudyChatRepository) DeleteRoom(roomId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM messages WHERE room_id = $1", roomId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM join_requests WHERE room_id = $1", roomId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM room_members WHERE room_id = $1", roomId)
	if err != nil {
		return err
	}

	res, err := tx.Exec("DELETE FROM rooms WHERE id = $1", roomId)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrNotFound
		return err
	}

	return tx.Commit()
}

// ListRoomsForUser returns rooms the user created or is an active member of.
func (db *PgStudyChatRepository) ListRoomsForUser(accountId int) ([]Room, error) {
	rows, err := db.conn.Query(
		"SELECT "+roomColumns+" FROM rooms r WHERE r.creator_id = $1 "+
			"OR EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = r.id AND m.account_id = $1 AND m.status = $2) "+
			"ORDER BY r.updated_at DESC",
		accountId,
		StatusActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(
			&room.Id,
			&room.ExternalId,
			&room.Name,
			&room.Kind,
			&room.ProjectId,
			&room.CourseId,
			&room.CreatorId,
			&room.Color,
			&room.CreatedAt,
			&room.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgStudyChatRepository) CountActiveMembers(roomId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM room_members WHERE room_id = $1 AND status = $2",
		roomId,
		StatusActive,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

// GetLatestMessage returns the most recent non-tombstoned message in the room,
// or nil when the room has none.
func (db *PgStudyChatRepository) GetLatestMessage(roomId int) (*Message, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.room_id, m.sender_id, a.username, m.content, m.type, m.sent_at "+
			"FROM messages m JOIN accounts a ON a.id = m.sender_id "+
			"WHERE m.room_id = $1 AND m.deleted_at IS NULL ORDER BY m.sent_at DESC LIMIT 1",
		roomId,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderId,
		&msg.SenderName,
		&msg.Content,
		&msg.Type,
		&msg.SentAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &msg, nil
}
