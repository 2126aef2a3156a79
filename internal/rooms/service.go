// Package rooms implements the room lifecycle: creation and settings,
// membership and roles, the join-request workflow, and the message history.
// All permission checks happen here through the auth predicates so the HTTP
// and WebSocket surfaces stay thin.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/npezzotti/studychat/internal/auth"
	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/rewards"
	"github.com/npezzotti/studychat/internal/stats"
	"github.com/npezzotti/studychat/internal/types"
	"github.com/teris-io/shortid"
)

// ErrForbidden marks a permission denial. The operation leaves all state
// untouched when it is returned.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidArgument marks a request rejected by validation before any state
// change.
var ErrInvalidArgument = errors.New("invalid argument")

// Number of runes of message content kept in room previews.
const previewLength = 50

type RoomService struct {
	log     *log.Logger
	db      database.StudyChatRepository
	rewards rewards.Publisher
	stats   stats.StatsProvider

	// Swapped in tests for deterministic room ids.
	generateShortId func() (string, error)
}

func NewRoomService(logger *log.Logger, db database.StudyChatRepository, pub rewards.Publisher, statsProvider stats.StatsProvider) *RoomService {
	return &RoomService{
		log:             logger,
		db:              db,
		rewards:         pub,
		stats:           statsProvider,
		generateShortId: shortid.Generate,
	}
}

// roleFor loads the actor's membership and derives their standing. A missing
// membership row is an ordinary NonMember, not an error.
func (s *RoomService) roleFor(actor types.User, room database.Room) (auth.RoomRole, error) {
	membership, err := s.db.GetMembership(room.Id, actor.Id)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return auth.NonMember, fmt.Errorf("get membership: %w", err)
	}

	return auth.RoleFor(actor.Id, room, membership), nil
}

type CreateRoomParams struct {
	Name      string
	Kind      string
	ProjectId *int
	CourseId  *int
	Color     string
}

func validateRoomLinks(kind string, projectId, courseId *int) error {
	switch kind {
	case database.RoomKindProject:
		if projectId == nil || courseId != nil {
			return fmt.Errorf("%w: project rooms link exactly one project", ErrInvalidArgument)
		}
	case database.RoomKindCourse:
		if courseId == nil || projectId != nil {
			return fmt.Errorf("%w: course rooms link exactly one course", ErrInvalidArgument)
		}
	case database.RoomKindGeneral, database.RoomKindPrivate:
		if projectId != nil || courseId != nil {
			return fmt.Errorf("%w: %s rooms cannot link a project or course", ErrInvalidArgument, kind)
		}
	default:
		return fmt.Errorf("%w: unknown room kind %q", ErrInvalidArgument, kind)
	}

	return nil
}

func (s *RoomService) CreateRoom(actor types.User, params CreateRoomParams) (types.Room, error) {
	if params.Name == "" {
		return types.Room{}, fmt.Errorf("%w: room name is required", ErrInvalidArgument)
	}
	if err := validateRoomLinks(params.Kind, params.ProjectId, params.CourseId); err != nil {
		return types.Room{}, err
	}

	externalId, err := s.generateShortId()
	if err != nil {
		return types.Room{}, fmt.Errorf("generate room id: %w", err)
	}

	room, err := s.db.CreateRoom(database.CreateRoomParams{
		Name:       params.Name,
		Kind:       params.Kind,
		ExternalId: externalId,
		ProjectId:  params.ProjectId,
		CourseId:   params.CourseId,
		CreatorId:  actor.Id,
		Color:      params.Color,
	})
	if err != nil {
		return types.Room{}, fmt.Errorf("create room: %w", err)
	}

	s.stats.Incr(stats.NumActiveRooms)

	return s.roomView(room)
}

func (s *RoomService) GetRoom(actor types.User, externalId string) (types.Room, error) {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return types.Room{}, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return types.Room{}, err
	}
	if !auth.CanViewRoom(role, actor.IsAdmin) {
		return types.Room{}, ErrForbidden
	}

	return s.roomView(room)
}

func (s *RoomService) ListRooms(actor types.User) ([]types.Room, error) {
	dbRooms, err := s.db.ListRoomsForUser(actor.Id)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rooms := make([]types.Room, 0, len(dbRooms))
	for _, room := range dbRooms {
		view, err := s.roomView(room)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, view)
	}

	return rooms, nil
}

type UpdateRoomParams struct {
	Name      string
	ProjectId *int
	CourseId  *int
	Color     string
}

func (s *RoomService) UpdateRoom(actor types.User, externalId string, params UpdateRoomParams) (types.Room, error) {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return types.Room{}, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return types.Room{}, err
	}
	if !auth.CanManageRoom(role, actor.IsAdmin) {
		return types.Room{}, ErrForbidden
	}

	if err := validateRoomLinks(room.Kind, params.ProjectId, params.CourseId); err != nil {
		return types.Room{}, err
	}
	if params.Name == "" {
		params.Name = room.Name
	}

	updated, err := s.db.UpdateRoom(database.UpdateRoomParams{
		RoomId:    room.Id,
		Name:      params.Name,
		ProjectId: params.ProjectId,
		CourseId:  params.CourseId,
		Color:     params.Color,
	})
	if err != nil {
		return types.Room{}, fmt.Errorf("update room: %w", err)
	}

	return s.roomView(updated)
}

func (s *RoomService) DeleteRoom(actor types.User, externalId string) error {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return err
	}
	if !auth.CanManageRoom(role, actor.IsAdmin) {
		return ErrForbidden
	}

	if err := s.db.DeleteRoom(room.Id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}

	s.stats.Decr(stats.NumActiveRooms)

	return nil
}

func (s *RoomService) ListMembers(actor types.User, externalId string) ([]types.RoomMember, error) {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return nil, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return nil, err
	}
	if !auth.CanViewRoom(role, actor.IsAdmin) {
		return nil, ErrForbidden
	}

	memberships, err := s.db.ListMembers(room.Id)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]types.RoomMember, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, memberView(m, room.ExternalId))
	}

	return members, nil
}

// SetRole changes a member's room role. Only the creator holds this power,
// and the creator's own standing cannot be reassigned.
func (s *RoomService) SetRole(actor types.User, externalId string, targetId int, role string) (types.RoomMember, error) {
	if role != database.RoleAdmin && role != database.RoleMember {
		return types.RoomMember{}, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return types.RoomMember{}, err
	}

	actorRole, err := s.roleFor(actor, room)
	if err != nil {
		return types.RoomMember{}, err
	}
	if !auth.CanSetRole(actorRole) || targetId == room.CreatorId {
		return types.RoomMember{}, ErrForbidden
	}

	membership, err := s.db.UpdateMembershipRole(room.Id, targetId, role)
	if err != nil {
		return types.RoomMember{}, err
	}

	return memberView(membership, room.ExternalId), nil
}

// RemoveMember kicks the target, or records a leave when the target is the
// actor. The creator cannot leave their own room.
func (s *RoomService) RemoveMember(actor types.User, externalId string, targetId int) error {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return err
	}

	if targetId == actor.Id {
		if actor.Id == room.CreatorId {
			return ErrForbidden
		}

		return s.db.MarkMemberLeft(room.Id, targetId)
	}

	actorRole, err := s.roleFor(actor, room)
	if err != nil {
		return err
	}

	targetMembership, err := s.db.GetMembership(room.Id, targetId)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("get membership: %w", err)
	}
	targetRole := auth.RoleFor(targetId, room, targetMembership)

	if !auth.CanKick(actorRole, targetRole, actor.IsAdmin, false) {
		return ErrForbidden
	}

	return s.db.BanMember(room.Id, targetId)
}

func (s *RoomService) CreateJoinRequest(actor types.User, externalId, reason string) (types.JoinRequest, error) {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return types.JoinRequest{}, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return types.JoinRequest{}, err
	}
	if role != auth.NonMember {
		return types.JoinRequest{}, fmt.Errorf("%w: already a member", database.ErrConflict)
	}

	req, err := s.db.CreateJoinRequest(database.CreateJoinRequestParams{
		RoomId:      room.Id,
		RequesterId: actor.Id,
		Reason:      reason,
	})
	if err != nil {
		return types.JoinRequest{}, err
	}

	return joinRequestView(req, room.ExternalId), nil
}

func (s *RoomService) ListJoinRequests(actor types.User, externalId, status string) ([]types.JoinRequest, error) {
	if status == "" {
		status = database.RequestPending
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return nil, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return nil, err
	}
	if !auth.CanApproveJoinRequest(role, actor.IsAdmin) {
		return nil, ErrForbidden
	}

	requests, err := s.db.ListJoinRequests(room.Id, status)
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}

	views := make([]types.JoinRequest, 0, len(requests))
	for _, req := range requests {
		views = append(views, joinRequestView(req, room.ExternalId))
	}

	return views, nil
}

// ProcessJoinRequest approves or rejects a pending request. Approval admits
// the requester as a plain active member, reactivating any banned or left
// membership row.
func (s *RoomService) ProcessJoinRequest(actor types.User, externalId string, requestId int, approve bool) (types.JoinRequest, error) {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return types.JoinRequest{}, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return types.JoinRequest{}, err
	}
	if !auth.CanApproveJoinRequest(role, actor.IsAdmin) {
		return types.JoinRequest{}, ErrForbidden
	}

	req, err := s.db.GetJoinRequest(requestId)
	if err != nil {
		return types.JoinRequest{}, err
	}
	if req.RoomId != room.Id {
		return types.JoinRequest{}, database.ErrNotFound
	}

	if approve {
		req, err = s.db.ApproveJoinRequest(requestId, actor.Id)
	} else {
		req, err = s.db.RejectJoinRequest(requestId, actor.Id)
	}
	if err != nil {
		return types.JoinRequest{}, err
	}

	return joinRequestView(req, room.ExternalId), nil
}

type SendMessageParams struct {
	Content       string
	Type          string
	MediaUrl      string
	MediaMimeType string
	MediaSize     int64
	MediaFilename string
}

func validateMessage(params SendMessageParams) error {
	switch params.Type {
	case database.MessageText, database.MessageSystem:
		if params.Content == "" {
			return fmt.Errorf("%w: %s messages require content", ErrInvalidArgument, params.Type)
		}
		if params.MediaUrl != "" || params.MediaMimeType != "" || params.MediaFilename != "" || params.MediaSize != 0 {
			return fmt.Errorf("%w: %s messages cannot carry media", ErrInvalidArgument, params.Type)
		}
	case database.MessageImage, database.MessageFile, database.MessageVideo:
		if params.MediaUrl == "" {
			return fmt.Errorf("%w: %s messages require a media url", ErrInvalidArgument, params.Type)
		}
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrInvalidArgument, params.Type)
	}

	return nil
}

// SendMessage persists a message and publishes a reward event. The reward is
// fire-and-forget: failures are logged and the message stands.
func (s *RoomService) SendMessage(ctx context.Context, actor types.User, externalId string, params SendMessageParams) (types.Message, error) {
	if params.Type == "" {
		params.Type = database.MessageText
	}
	if err := validateMessage(params); err != nil {
		return types.Message{}, err
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return types.Message{}, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return types.Message{}, err
	}
	if !auth.CanSendMessage(role) {
		return types.Message{}, ErrForbidden
	}

	msg, err := s.db.CreateMessage(database.CreateMessageParams{
		RoomId:        room.Id,
		SenderId:      actor.Id,
		Content:       params.Content,
		Type:          params.Type,
		MediaUrl:      params.MediaUrl,
		MediaMimeType: params.MediaMimeType,
		MediaSize:     params.MediaSize,
		MediaFilename: params.MediaFilename,
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	s.stats.Incr(stats.NumMessagesSent)

	event := rewards.NewMessageEvent(actor.Id, room.ExternalId, msg.Id)
	if err := s.rewards.Publish(ctx, event); err != nil {
		s.log.Printf("failed to publish reward event %s: %v", event.Id, err)
	} else {
		s.stats.Incr(stats.NumRewardEvents)
	}

	return messageView(msg, room.ExternalId), nil
}

func (s *RoomService) ListMessages(actor types.User, externalId string, limit, offset int) ([]types.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return nil, err
	}

	role, err := s.roleFor(actor, room)
	if err != nil {
		return nil, err
	}
	if !auth.CanViewRoom(role, actor.IsAdmin) {
		return nil, ErrForbidden
	}

	messages, err := s.db.ListMessages(room.Id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	views := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		views = append(views, messageView(msg, room.ExternalId))
	}

	return views, nil
}

// DeleteMessage tombstones a message. Only the author may delete it, no
// matter their room standing.
func (s *RoomService) DeleteMessage(actor types.User, externalId string, messageId int) error {
	room, err := s.db.GetRoomByExternalId(externalId)
	if err != nil {
		return err
	}

	msg, err := s.db.GetMessage(messageId)
	if err != nil {
		return err
	}
	if msg.RoomId != room.Id || msg.DeletedAt != nil {
		return database.ErrNotFound
	}
	if msg.SenderId != actor.Id {
		return ErrForbidden
	}

	return s.db.SoftDeleteMessage(messageId)
}

// CanSend re-derives the actor's send permission from current state. The
// WebSocket session calls this before relaying every frame.
func (s *RoomService) CanSend(actor types.User, room database.Room) bool {
	membership, err := s.db.GetMembership(room.Id, actor.Id)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		s.log.Printf("failed to load membership for user %d in room %s: %v", actor.Id, room.ExternalId, err)
		return false
	}

	return auth.CanSendMessage(auth.RoleFor(actor.Id, room, membership))
}

// CanView re-derives the actor's view permission from current state.
func (s *RoomService) CanView(actor types.User, room database.Room) bool {
	membership, err := s.db.GetMembership(room.Id, actor.Id)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		s.log.Printf("failed to load membership for user %d in room %s: %v", actor.Id, room.ExternalId, err)
		return false
	}

	return auth.CanViewRoom(auth.RoleFor(actor.Id, room, membership), actor.IsAdmin)
}

// Room resolves a room by its external id for the WebSocket surface.
func (s *RoomService) Room(externalId string) (database.Room, error) {
	return s.db.GetRoomByExternalId(externalId)
}
