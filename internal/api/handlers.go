package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/npezzotti/studychat/internal/rooms"
	"github.com/npezzotti/studychat/internal/server"
)

type CreateRoomRequest struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	ProjectId *int   `json:"project_id,omitempty"`
	CourseId  *int   `json:"course_id,omitempty"`
	Color     string `json:"color,omitempty"`
}

type UpdateRoomRequest struct {
	Name      string `json:"name"`
	ProjectId *int   `json:"project_id,omitempty"`
	CourseId  *int   `json:"course_id,omitempty"`
	Color     string `json:"color,omitempty"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

type CreateJoinRequestRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ProcessJoinRequestRequest struct {
	Approve bool `json:"approve"`
}

type SendMessageRequest struct {
	Content       string `json:"content"`
	Type          string `json:"type,omitempty"`
	MediaUrl      string `json:"media_url,omitempty"`
	MediaMimeType string `json:"media_mime_type,omitempty"`
	MediaSize     int64  `json:"media_size,omitempty"`
	MediaFilename string `json:"media_filename,omitempty"`
}

func (s *StudyChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *StudyChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.CreateRoom(user, rooms.CreateRoomParams{
		Name:      req.Name,
		Kind:      req.Kind,
		ProjectId: req.ProjectId,
		CourseId:  req.CourseId,
		Color:     req.Color,
	})
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *StudyChatApp) listRooms(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomList, err := s.rooms.ListRooms(user)
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, roomList)
}

func (s *StudyChatApp) getRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.GetRoom(user, r.PathValue("id"))
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *StudyChatApp) updateRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.rooms.UpdateRoom(user, r.PathValue("id"), rooms.UpdateRoomParams{
		Name:      req.Name,
		ProjectId: req.ProjectId,
		CourseId:  req.CourseId,
		Color:     req.Color,
	})
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *StudyChatApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.rooms.DeleteRoom(user, r.PathValue("id")); err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *StudyChatApp) listMembers(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	members, err := s.rooms.ListMembers(user, r.PathValue("id"))
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, members)
}

func (s *StudyChatApp) setMemberRole(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	targetId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.rooms.SetRole(user, r.PathValue("id"), targetId, req.Role)
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, member)
}

func (s *StudyChatApp) removeMember(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	targetId, err := strconv.Atoi(r.PathValue("userId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// The target's live socket, if any, is left alone: revocation is caught
	// on their next frame or by the idle sweeper.
	if err := s.rooms.RemoveMember(user, r.PathValue("id"), targetId); err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *StudyChatApp) createJoinRequest(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateJoinRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	joinReq, err := s.rooms.CreateJoinRequest(user, r.PathValue("id"), req.Reason)
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, joinReq)
}

func (s *StudyChatApp) listJoinRequests(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	requests, err := s.rooms.ListJoinRequests(user, r.PathValue("id"), r.URL.Query().Get("status"))
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, requests)
}

func (s *StudyChatApp) processJoinRequest(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	requestId, err := strconv.Atoi(r.PathValue("requestId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ProcessJoinRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	joinReq, err := s.rooms.ProcessJoinRequest(user, r.PathValue("id"), requestId, req.Approve)
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, joinReq)
}

func (s *StudyChatApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.PathValue("id")
	msg, err := s.rooms.SendMessage(r.Context(), user, externalId, rooms.SendMessageParams{
		Content:       req.Content,
		Type:          req.Type,
		MediaUrl:      req.MediaUrl,
		MediaMimeType: req.MediaMimeType,
		MediaSize:     req.MediaSize,
		MediaFilename: req.MediaFilename,
	})
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// Messages sent over HTTP still reach connected occupants.
	s.registry.Broadcast(externalId, server.NewChatMessageFrame(msg))

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *StudyChatApp) listMessages(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit, offset int
	var err error

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err = strconv.Atoi(offsetStr); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	messages, err := s.rooms.ListMessages(user, r.PathValue("id"), limit, offset)
	if err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *StudyChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	user, errResp := s.currentUser(r)
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := strconv.Atoi(r.PathValue("messageId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.rooms.DeleteMessage(user, r.PathValue("id"), messageId); err != nil {
		errResp := apiError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}
