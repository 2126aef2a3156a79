package server

import (
	"time"

	"github.com/npezzotti/studychat/internal/types"
)

const (
	frameTypeStatus      = "status"
	frameTypeChatMessage = "chat_message"
)

// ClientFrame is the only inbound frame shape. Everything else a client
// needs (joining, leaving, history) happens over HTTP before or alongside
// the socket.
type ClientFrame struct {
	Content string `json:"content"`
}

// StatusFrame announces room lifecycle events, such as a member entering.
type StatusFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ChatMessageFrame carries a persisted message to room occupants.
type ChatMessageFrame struct {
	Type       string    `json:"type"`
	Id         int       `json:"id"`
	RoomId     string    `json:"room_id"`
	SenderId   int       `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

// ErrorFrame reports a per-frame failure inline without closing the socket.
type ErrorFrame struct {
	Error string `json:"error"`
}

func NewStatusFrame(content string) *StatusFrame {
	return &StatusFrame{
		Type:    frameTypeStatus,
		Content: content,
	}
}

func NewChatMessageFrame(msg types.Message) *ChatMessageFrame {
	return &ChatMessageFrame{
		Type:       frameTypeChatMessage,
		Id:         msg.Id,
		RoomId:     msg.RoomId,
		SenderId:   msg.SenderId,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		SentAt:     msg.SentAt,
	}
}

func NewErrorFrame(message string) *ErrorFrame {
	return &ErrorFrame{Error: message}
}
