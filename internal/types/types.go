package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	IsAdmin      bool      `json:"is_admin,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// MessagePreview is the truncated most-recent-message summary attached to room views.
type MessagePreview struct {
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

type Room struct {
	Id          string          `json:"id"`
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	ProjectId   *int            `json:"project_id,omitempty"`
	CourseId    *int            `json:"course_id,omitempty"`
	CreatorId   int             `json:"creator_id"`
	Color       string          `json:"color,omitempty"`
	MemberCount int             `json:"member_count"`
	LastMessage *MessagePreview `json:"last_message,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

type RoomMember struct {
	Id         int        `json:"id"`
	RoomId     string     `json:"room_id"`
	UserId     int        `json:"user_id"`
	Username   string     `json:"username"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	JoinedAt   time.Time  `json:"joined_at"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

type JoinRequest struct {
	Id          int        `json:"id"`
	RoomId      string     `json:"room_id"`
	RequesterId int        `json:"requester_id"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ProcessedBy *int       `json:"processed_by,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

type Message struct {
	Id            int        `json:"id"`
	RoomId        string     `json:"room_id"`
	SenderId      int        `json:"sender_id"`
	SenderName    string     `json:"sender_name,omitempty"`
	Content       string     `json:"content"`
	Type          string     `json:"type"`
	MediaUrl      string     `json:"media_url,omitempty"`
	MediaMimeType string     `json:"media_mime_type,omitempty"`
	MediaSize     int64      `json:"media_size,omitempty"`
	MediaFilename string     `json:"media_filename,omitempty"`
	SentAt        time.Time  `json:"sent_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}
