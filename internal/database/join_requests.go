package database

import (
	"time"
)

const joinRequestColumns = "id, room_id, requester_id, reason, status, requested_at, processed_by, processed_at"

func scanJoinRequest(row scanner) (JoinRequest, error) {
	var req JoinRequest
	err := row.Scan(
		&req.Id,
		&req.RoomId,
		&req.RequesterId,
		&req.Reason,
		&req.Status,
		&req.RequestedAt,
		&req.ProcessedBy,
		&req.ProcessedAt,
	)

	return req, translateError(err)
}

type scanner interface {
	Scan(dest ...any) error
}

// CreateJoinRequest inserts a pending request. A partial unique index on
// (room_id, requester_id) for pending rows makes duplicate pending requests
// surface as ErrConflict.
func (db *PgStudyChatRepository) CreateJoinRequest(params CreateJoinRequestParams) (JoinRequest, error) {
	row := db.conn.QueryRow(
		"INSERT INTO join_requests (room_id, requester_id, reason, status, requested_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING "+joinRequestColumns,
		params.RoomId,
		params.RequesterId,
		params.Reason,
		RequestPending,
		time.Now().UTC(),
	)

	return scanJoinRequest(row)
}

func (db *PgStudyChatRepository) GetJoinRequest(requestId int) (JoinRequest, error) {
	row := db.conn.QueryRow(
		"SELECT "+joinRequestColumns+" FROM join_requests WHERE id = $1 LIMIT 1",
		requestId,
	)

	return scanJoinRequest(row)
}

func (db *PgStudyChatRepository) ListJoinRequests(roomId int, status string) ([]JoinRequest, error) {
	rows, err := db.conn.Query(
		"SELECT "+joinRequestColumns+" FROM join_requests "+
			"WHERE room_id = $1 AND status = $2 ORDER BY requested_at ASC",
		roomId,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []JoinRequest
	for rows.Next() {
		var req JoinRequest
		if err := rows.Scan(
			&req.Id,
			&req.RoomId,
			&req.RequesterId,
			&req.Reason,
			&req.Status,
			&req.RequestedAt,
			&req.ProcessedBy,
			&req.ProcessedAt,
		); err != nil {
			return nil, err
		}

		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// ApproveJoinRequest resolves a pending request and upserts the requester's
// membership as an active member in one transaction. The request row is
// locked for the duration so concurrent approvals of the same request
// serialize; replaying a resolved request returns ErrInvalidState.
func (db *PgStudyChatRepository) ApproveJoinRequest(requestId, processorId int) (JoinRequest, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return JoinRequest{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var req JoinRequest
	req, err = scanJoinRequest(tx.QueryRow(
		"SELECT "+joinRequestColumns+" FROM join_requests WHERE id = $1 FOR UPDATE",
		requestId,
	))
	if err != nil {
		return JoinRequest{}, err
	}

	if req.Status != RequestPending {
		err = ErrInvalidState
		return JoinRequest{}, err
	}

	now := time.Now().UTC()
	req, err = scanJoinRequest(tx.QueryRow(
		"UPDATE join_requests SET status = $2, processed_by = $3, processed_at = $4 "+
			"WHERE id = $1 RETURNING "+joinRequestColumns,
		requestId,
		RequestApproved,
		processorId,
		now,
	))
	if err != nil {
		return JoinRequest{}, err
	}

	// Re-admits users whose previous membership was banned or left.
	_, err = tx.Exec(
		"INSERT INTO room_members (room_id, account_id, role, status, joined_at, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5, $5) "+
			"ON CONFLICT (room_id, account_id) DO UPDATE SET role = $3, status = $4, joined_at = $5, updated_at = $5",
		req.RoomId,
		req.RequesterId,
		RoleMember,
		StatusActive,
		now,
	)
	if err != nil {
		err = translateError(err)
		return JoinRequest{}, err
	}

	if err = tx.Commit(); err != nil {
		return JoinRequest{}, translateError(err)
	}

	return req, nil
}

// RejectJoinRequest resolves a pending request without touching membership.
func (db *PgStudyChatRepository) RejectJoinRequest(requestId, processorId int) (JoinRequest, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return JoinRequest{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var req JoinRequest
	req, err = scanJoinRequest(tx.QueryRow(
		"SELECT "+joinRequestColumns+" FROM join_requests WHERE id = $1 FOR UPDATE",
		requestId,
	))
	if err != nil {
		return JoinRequest{}, err
	}

	if req.Status != RequestPending {
		err = ErrInvalidState
		return JoinRequest{}, err
	}

	req, err = scanJoinRequest(tx.QueryRow(
		"UPDATE join_requests SET status = $2, processed_by = $3, processed_at = $4 "+
			"WHERE id = $1 RETURNING "+joinRequestColumns,
		requestId,
		RequestRejected,
		processorId,
		time.Now().UTC(),
	))
	if err != nil {
		return JoinRequest{}, err
	}

	if err = tx.Commit(); err != nil {
		return JoinRequest{}, translateError(err)
	}

	return req, nil
}
