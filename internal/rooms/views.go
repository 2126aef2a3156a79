package rooms

import (
	"fmt"

	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/types"
)

// roomView assembles the API shape of a room: the stored row plus the active
// member count and a truncated preview of the latest surviving message.
func (s *RoomService) roomView(room database.Room) (types.Room, error) {
	count, err := s.db.CountActiveMembers(room.Id)
	if err != nil {
		return types.Room{}, fmt.Errorf("count members: %w", err)
	}

	latest, err := s.db.GetLatestMessage(room.Id)
	if err != nil {
		return types.Room{}, fmt.Errorf("latest message: %w", err)
	}

	var preview *types.MessagePreview
	if latest != nil {
		preview = &types.MessagePreview{
			SenderName: latest.SenderName,
			Content:    truncate(latest.Content, previewLength),
			SentAt:     latest.SentAt,
		}
	}

	return types.Room{
		Id:          room.ExternalId,
		Name:        room.Name,
		Kind:        room.Kind,
		ProjectId:   room.ProjectId,
		CourseId:    room.CourseId,
		CreatorId:   room.CreatorId,
		Color:       room.Color,
		MemberCount: count,
		LastMessage: preview,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}, nil
}

// truncate shortens s to at most n runes so multibyte content is never cut
// mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n])
}

func memberView(m database.Membership, roomExternalId string) types.RoomMember {
	return types.RoomMember{
		Id:         m.Id,
		RoomId:     roomExternalId,
		UserId:     m.AccountId,
		Username:   m.Username,
		Role:       m.Role,
		Status:     m.Status,
		JoinedAt:   m.JoinedAt,
		LastReadAt: m.LastReadAt,
	}
}

func joinRequestView(req database.JoinRequest, roomExternalId string) types.JoinRequest {
	return types.JoinRequest{
		Id:          req.Id,
		RoomId:      roomExternalId,
		RequesterId: req.RequesterId,
		Reason:      req.Reason,
		Status:      req.Status,
		RequestedAt: req.RequestedAt,
		ProcessedBy: req.ProcessedBy,
		ProcessedAt: req.ProcessedAt,
	}
}

func messageView(msg database.Message, roomExternalId string) types.Message {
	return types.Message{
		Id:            msg.Id,
		RoomId:        roomExternalId,
		SenderId:      msg.SenderId,
		SenderName:    msg.SenderName,
		Content:       msg.Content,
		Type:          msg.Type,
		MediaUrl:      msg.MediaUrl,
		MediaMimeType: msg.MediaMimeType,
		MediaSize:     msg.MediaSize,
		MediaFilename: msg.MediaFilename,
		SentAt:        msg.SentAt,
		DeletedAt:     msg.DeletedAt,
	}
}
