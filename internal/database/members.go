package database

import (
	"time"
)

const membershipColumns = "m.id, m.room_id, m.account_id, a.username, m.role, m.status, m.joined_at, m.last_read_at, m.created_at, m.updated_at"

// GetMembership returns the membership row for an account in a room,
// regardless of status. Callers inspect Status to decide what it means.
func (db *PgStudyChatRepository) GetMembership(roomId, accountId int) (*Membership, error) {
	row := db.conn.QueryRow(
		"SELECT "+membershipColumns+" FROM room_members m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 AND m.account_id = $2 LIMIT 1",
		roomId,
		accountId,
	)

	var member Membership
	err := row.Scan(
		&member.Id,
		&member.RoomId,
		&member.AccountId,
		&member.Username,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
		&member.LastReadAt,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	return &member, nil
}

func (db *PgStudyChatRepository) ListMembers(roomId int) ([]Membership, error) {
	rows, err := db.conn.Query(
		"SELECT "+membershipColumns+" FROM room_members m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.room_id = $1 AND m.status = $2 ORDER BY m.joined_at ASC",
		roomId,
		StatusActive,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var member Membership
		if err := rows.Scan(
			&member.Id,
			&member.RoomId,
			&member.AccountId,
			&member.Username,
			&member.Role,
			&member.Status,
			&member.JoinedAt,
			&member.LastReadAt,
			&member.CreatedAt,
			&member.UpdatedAt,
		); err != nil {
			return nil, err
		}

		members = append(members, member)
	}

	return members, rows.Err()
}

func (db *PgStudyChatRepository) UpdateMembershipRole(roomId, accountId int, role string) (Membership, error) {
	row := db.conn.QueryRow(
		"WITH updated AS ("+
			"UPDATE room_members SET role = $3, updated_at = $4 "+
			"WHERE room_id = $1 AND account_id = $2 AND status = $5 RETURNING *) "+
			"SELECT "+membershipColumns+" FROM updated m JOIN accounts a ON a.id = m.account_id",
		roomId,
		accountId,
		role,
		time.Now().UTC(),
		StatusActive,
	)

	var member Membership
	err := row.Scan(
		&member.Id,
		&member.RoomId,
		&member.AccountId,
		&member.Username,
		&member.Role,
		&member.Status,
		&member.JoinedAt,
		&member.LastReadAt,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return Membership{}, translateError(err)
	}

	return member, nil
}

// BanMember marks the member banned and demotes them to a plain member in
// one statement so a banned admin cannot retain admin rights if reinstated.
func (db *PgStudyChatRepository) BanMember(roomId, accountId int) error {
	res, err := db.conn.Exec(
		"UPDATE room_members SET status = $3, role = $4, updated_at = $5 "+
			"WHERE room_id = $1 AND account_id = $2 AND status = $6",
		roomId,
		accountId,
		StatusBanned,
		RoleMember,
		time.Now().UTC(),
		StatusActive,
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

func (db *PgStudyChatRepository) MarkMemberLeft(roomId, accountId int) error {
	res, err := db.conn.Exec(
		"UPDATE room_members SET status = $3, updated_at = $4 "+
			"WHERE room_id = $1 AND account_id = $2 AND status = $5",
		roomId,
		accountId,
		StatusLeft,
		time.Now().UTC(),
		StatusActive,
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
