package database

import "time"

const (
	RoomKindGeneral = "general"
	RoomKindProject = "project"
	RoomKindCourse  = "course"
	RoomKindPrivate = "private"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	StatusActive = "active"
	StatusBanned = "banned"
	StatusLeft   = "left"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

const (
	MessageText   = "text"
	MessageImage  = "image"
	MessageFile   = "file"
	MessageVideo  = "video"
	MessageSystem = "system"
)

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id         int
	ExternalId string
	Name       string
	Kind       string
	ProjectId  *int
	CourseId   *int
	CreatorId  int
	Color      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Membership struct {
	Id         int
	RoomId     int
	AccountId  int
	Username   string
	Role       string
	Status     string
	JoinedAt   time.Time
	LastReadAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type JoinRequest struct {
	Id          int
	RoomId      int
	RequesterId int
	Reason      string
	Status      string
	RequestedAt time.Time
	ProcessedBy *int
	ProcessedAt *time.Time
}

type Message struct {
	Id            int
	RoomId        int
	SenderId      int
	SenderName    string
	Content       string
	Type          string
	MediaUrl      string
	MediaMimeType string
	MediaSize     int64
	MediaFilename string
	SentAt        time.Time
	DeletedAt     *time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}

type CreateRoomParams struct {
	Name       string
	Kind       string
	ExternalId string
	ProjectId  *int
	CourseId   *int
	CreatorId  int
	Color      string
}

type UpdateRoomParams struct {
	RoomId    int
	Name      string
	ProjectId *int
	CourseId  *int
	Color     string
}

type CreateJoinRequestParams struct {
	RoomId      int
	RequesterId int
	Reason      string
}

type CreateMessageParams struct {
	RoomId        int
	SenderId      int
	Content       string
	Type          string
	MediaUrl      string
	MediaMimeType string
	MediaSize     int64
	MediaFilename string
}
