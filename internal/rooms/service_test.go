package rooms

import (
	"context"
	"testing"
	"time"

	"github.com/npezzotti/studychat/internal/database"
	"github.com/npezzotti/studychat/internal/rewards"
	"github.com/npezzotti/studychat/internal/stats"
	"github.com/npezzotti/studychat/internal/testutil"
	"github.com/npezzotti/studychat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestService(t *testing.T, db *database.MockStudyChatRepository) (*RoomService, *rewards.MockPublisher) {
	pub := &rewards.MockPublisher{}
	st := &stats.MockStatsUpdater{}
	st.On("Incr", mock.Anything).Maybe()
	st.On("Decr", mock.Anything).Maybe()

	svc := NewRoomService(testutil.TestLogger(t), db, pub, st)
	svc.generateShortId = func() (string, error) { return "test-room", nil }

	return svc, pub
}

func activeMembership(accountId int, role string) *database.Membership {
	return &database.Membership{
		RoomId:    1,
		AccountId: accountId,
		Role:      role,
		Status:    database.StatusActive,
		JoinedAt:  time.Now(),
	}
}

func TestCreateRoom(t *testing.T) {
	projectId := 7

	tcases := []struct {
		name   string
		params CreateRoomParams
		err    bool
	}{
		{
			name:   "general room",
			params: CreateRoomParams{Name: "study hall", Kind: database.RoomKindGeneral},
		},
		{
			name:   "project room with link",
			params: CreateRoomParams{Name: "capstone", Kind: database.RoomKindProject, ProjectId: &projectId},
		},
		{
			name:   "project room without link",
			params: CreateRoomParams{Name: "capstone", Kind: database.RoomKindProject},
			err:    true,
		},
		{
			name:   "general room with link",
			params: CreateRoomParams{Name: "study hall", Kind: database.RoomKindGeneral, ProjectId: &projectId},
			err:    true,
		},
		{
			name:   "course room with project link",
			params: CreateRoomParams{Name: "bio 101", Kind: database.RoomKindCourse, ProjectId: &projectId},
			err:    true,
		},
		{
			name:   "missing name",
			params: CreateRoomParams{Kind: database.RoomKindGeneral},
			err:    true,
		},
		{
			name:   "unknown kind",
			params: CreateRoomParams{Name: "study hall", Kind: "lounge"},
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockStudyChatRepository{}
			svc, _ := newTestService(t, db)

			if !tc.err {
				db.On("CreateRoom", mock.MatchedBy(func(p database.CreateRoomParams) bool {
					return p.Name == tc.params.Name && p.ExternalId == "test-room" && p.CreatorId == 1
				})).Return(database.Room{Id: 1, ExternalId: "test-room", Name: tc.params.Name, Kind: tc.params.Kind, CreatorId: 1}, nil)
				db.On("CountActiveMembers", 1).Return(1, nil)
				db.On("GetLatestMessage", 1).Return(nil, nil)
			}

			room, err := svc.CreateRoom(types.User{Id: 1, Username: "creator"}, tc.params)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				db.AssertNotCalled(t, "CreateRoom", mock.Anything)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "test-room", room.Id)
			assert.Equal(t, 1, room.MemberCount)
			db.AssertExpectations(t)
		})
	}
}

func TestGetRoom(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", Name: "study hall", CreatorId: 10}

	tcases := []struct {
		name       string
		actor      types.User
		membership *database.Membership
		err        error
	}{
		{
			name:       "active member",
			actor:      types.User{Id: 2},
			membership: activeMembership(2, database.RoleMember),
		},
		{
			name:  "creator without membership",
			actor: types.User{Id: 10},
		},
		{
			name:  "system admin",
			actor: types.User{Id: 3, IsAdmin: true},
		},
		{
			name:  "non-member",
			actor: types.User{Id: 4},
			err:   ErrForbidden,
		},
		{
			name:       "banned member",
			actor:      types.User{Id: 5},
			membership: &database.Membership{AccountId: 5, Role: database.RoleMember, Status: database.StatusBanned},
			err:        ErrForbidden,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockStudyChatRepository{}
			svc, _ := newTestService(t, db)

			db.On("GetRoomByExternalId", "abc").Return(room, nil)
			if tc.membership != nil {
				db.On("GetMembership", 1, tc.actor.Id).Return(tc.membership, nil)
			} else {
				db.On("GetMembership", 1, tc.actor.Id).Return(nil, database.ErrNotFound)
			}
			db.On("CountActiveMembers", 1).Return(3, nil).Maybe()
			db.On("GetLatestMessage", 1).Return(nil, nil).Maybe()

			got, err := svc.GetRoom(tc.actor, "abc")
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "abc", got.Id)
			assert.Equal(t, 3, got.MemberCount)
		})
	}
}

func TestGetRoom_preview(t *testing.T) {
	db := &database.MockStudyChatRepository{}
	svc, _ := newTestService(t, db)

	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}
	longContent := "This message is well over fifty runes long and should be cut short in the preview."

	db.On("GetRoomByExternalId", "abc").Return(room, nil)
	db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)
	db.On("CountActiveMembers", 1).Return(2, nil)
	db.On("GetLatestMessage", 1).Return(&database.Message{
		Id: 9, SenderName: "alice", Content: longContent, SentAt: time.Now(),
	}, nil)

	got, err := svc.GetRoom(types.User{Id: 10}, "abc")
	assert.NoError(t, err)
	assert.NotNil(t, got.LastMessage)
	assert.Equal(t, "alice", got.LastMessage.SenderName)
	assert.Len(t, []rune(got.LastMessage.Content), 50)
	assert.Equal(t, longContent[:50], got.LastMessage.Content)
}

func TestUpdateRoom(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", Name: "study hall", Kind: database.RoomKindGeneral, CreatorId: 10}

	t.Run("creator updates", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 10).Return(activeMembership(10, database.RoleAdmin), nil)
		db.On("UpdateRoom", database.UpdateRoomParams{RoomId: 1, Name: "new name", Color: "blue"}).
			Return(database.Room{Id: 1, ExternalId: "abc", Name: "new name", CreatorId: 10, Color: "blue"}, nil)
		db.On("CountActiveMembers", 1).Return(1, nil)
		db.On("GetLatestMessage", 1).Return(nil, nil)

		got, err := svc.UpdateRoom(types.User{Id: 10}, "abc", UpdateRoomParams{Name: "new name", Color: "blue"})
		assert.NoError(t, err)
		assert.Equal(t, "new name", got.Name)
	})

	t.Run("room admin cannot update", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleAdmin), nil)

		_, err := svc.UpdateRoom(types.User{Id: 2}, "abc", UpdateRoomParams{Name: "hijack"})
		assert.ErrorIs(t, err, ErrForbidden)
		db.AssertNotCalled(t, "UpdateRoom", mock.Anything)
	})
}

func TestDeleteRoom(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	t.Run("creator deletes", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)
		db.On("DeleteRoom", 1).Return(nil)

		assert.NoError(t, svc.DeleteRoom(types.User{Id: 10}, "abc"))
		db.AssertExpectations(t)
	})

	t.Run("member cannot delete", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)

		assert.ErrorIs(t, svc.DeleteRoom(types.User{Id: 2}, "abc"), ErrForbidden)
		db.AssertNotCalled(t, "DeleteRoom", mock.Anything)
	})

	t.Run("missing room", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "missing").Return(database.Room{}, database.ErrNotFound)

		assert.ErrorIs(t, svc.DeleteRoom(types.User{Id: 10}, "missing"), database.ErrNotFound)
	})
}

func TestSetRole(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	t.Run("creator promotes member", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)
		db.On("UpdateMembershipRole", 1, 2, database.RoleAdmin).
			Return(database.Membership{RoomId: 1, AccountId: 2, Role: database.RoleAdmin, Status: database.StatusActive}, nil)

		member, err := svc.SetRole(types.User{Id: 10}, "abc", 2, database.RoleAdmin)
		assert.NoError(t, err)
		assert.Equal(t, database.RoleAdmin, member.Role)
	})

	t.Run("room admin cannot set roles", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 3).Return(activeMembership(3, database.RoleAdmin), nil)

		_, err := svc.SetRole(types.User{Id: 3}, "abc", 2, database.RoleAdmin)
		assert.ErrorIs(t, err, ErrForbidden)
		db.AssertNotCalled(t, "UpdateMembershipRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creator role cannot be reassigned", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)

		_, err := svc.SetRole(types.User{Id: 10}, "abc", 10, database.RoleMember)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown role", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		_, err := svc.SetRole(types.User{Id: 10}, "abc", 2, "king")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestRemoveMember(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	t.Run("admin kicks member", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 3).Return(activeMembership(3, database.RoleAdmin), nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)
		db.On("BanMember", 1, 2).Return(nil)

		assert.NoError(t, svc.RemoveMember(types.User{Id: 3}, "abc", 2))
		db.AssertExpectations(t)
	})

	t.Run("admin cannot kick admin", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 3).Return(activeMembership(3, database.RoleAdmin), nil)
		db.On("GetMembership", 1, 4).Return(activeMembership(4, database.RoleAdmin), nil)

		assert.ErrorIs(t, svc.RemoveMember(types.User{Id: 3}, "abc", 4), ErrForbidden)
		db.AssertNotCalled(t, "BanMember", mock.Anything, mock.Anything)
	})

	t.Run("room admin cannot kick the creator", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 3).Return(activeMembership(3, database.RoleAdmin), nil)
		db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)

		assert.ErrorIs(t, svc.RemoveMember(types.User{Id: 3}, "abc", 10), ErrForbidden)
		db.AssertNotCalled(t, "BanMember", mock.Anything, mock.Anything)
	})

	t.Run("system admin kicks the creator", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 3).Return(nil, database.ErrNotFound)
		db.On("GetMembership", 1, 10).Return(activeMembership(10, database.RoleAdmin), nil)
		db.On("BanMember", 1, 10).Return(nil)

		assert.NoError(t, svc.RemoveMember(types.User{Id: 3, IsAdmin: true}, "abc", 10))
		db.AssertExpectations(t)
	})

	t.Run("self removal is a leave", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("MarkMemberLeft", 1, 2).Return(nil)

		assert.NoError(t, svc.RemoveMember(types.User{Id: 2}, "abc", 2))
		db.AssertNotCalled(t, "BanMember", mock.Anything, mock.Anything)
	})

	t.Run("creator cannot leave", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)

		assert.ErrorIs(t, svc.RemoveMember(types.User{Id: 10}, "abc", 10), ErrForbidden)
		db.AssertNotCalled(t, "MarkMemberLeft", mock.Anything, mock.Anything)
	})
}

func TestCreateJoinRequest(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	t.Run("non-member asks to join", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(nil, database.ErrNotFound)
		db.On("CreateJoinRequest", database.CreateJoinRequestParams{RoomId: 1, RequesterId: 2, Reason: "please"}).
			Return(database.JoinRequest{Id: 5, RoomId: 1, RequesterId: 2, Status: database.RequestPending}, nil)

		req, err := svc.CreateJoinRequest(types.User{Id: 2}, "abc", "please")
		assert.NoError(t, err)
		assert.Equal(t, database.RequestPending, req.Status)
		assert.Equal(t, "abc", req.RoomId)
	})

	t.Run("active member cannot ask", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)

		_, err := svc.CreateJoinRequest(types.User{Id: 2}, "abc", "")
		assert.ErrorIs(t, err, database.ErrConflict)
		db.AssertNotCalled(t, "CreateJoinRequest", mock.Anything)
	})

	t.Run("duplicate pending request conflicts", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(nil, database.ErrNotFound)
		db.On("CreateJoinRequest", mock.Anything).Return(database.JoinRequest{}, database.ErrConflict)

		_, err := svc.CreateJoinRequest(types.User{Id: 2}, "abc", "")
		assert.ErrorIs(t, err, database.ErrConflict)
	})
}

func TestProcessJoinRequest(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}
	pending := database.JoinRequest{Id: 5, RoomId: 1, RequesterId: 2, Status: database.RequestPending}

	t.Run("admin approves", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 3).Return(activeMembership(3, database.RoleAdmin), nil)
		db.On("GetJoinRequest", 5).Return(pending, nil)
		db.On("ApproveJoinRequest", 5, 3).
			Return(database.JoinRequest{Id: 5, RoomId: 1, RequesterId: 2, Status: database.RequestApproved}, nil)

		req, err := svc.ProcessJoinRequest(types.User{Id: 3}, "abc", 5, true)
		assert.NoError(t, err)
		assert.Equal(t, database.RequestApproved, req.Status)
	})

	t.Run("creator rejects", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)
		db.On("GetJoinRequest", 5).Return(pending, nil)
		db.On("RejectJoinRequest", 5, 10).
			Return(database.JoinRequest{Id: 5, RoomId: 1, RequesterId: 2, Status: database.RequestRejected}, nil)

		req, err := svc.ProcessJoinRequest(types.User{Id: 10}, "abc", 5, false)
		assert.NoError(t, err)
		assert.Equal(t, database.RequestRejected, req.Status)
	})

	t.Run("member cannot process", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)

		_, err := svc.ProcessJoinRequest(types.User{Id: 2}, "abc", 5, true)
		assert.ErrorIs(t, err, ErrForbidden)
		db.AssertNotCalled(t, "ApproveJoinRequest", mock.Anything, mock.Anything)
	})

	t.Run("replaying a resolved request", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)
		db.On("GetJoinRequest", 5).Return(database.JoinRequest{Id: 5, RoomId: 1, Status: database.RequestApproved}, nil)
		db.On("ApproveJoinRequest", 5, 10).Return(database.JoinRequest{}, database.ErrInvalidState)

		_, err := svc.ProcessJoinRequest(types.User{Id: 10}, "abc", 5, true)
		assert.ErrorIs(t, err, database.ErrInvalidState)
	})

	t.Run("request from another room", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 10).Return(nil, database.ErrNotFound)
		db.On("GetJoinRequest", 5).Return(database.JoinRequest{Id: 5, RoomId: 99, Status: database.RequestPending}, nil)

		_, err := svc.ProcessJoinRequest(types.User{Id: 10}, "abc", 5, true)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestSendMessage(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	t.Run("member sends text", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, pub := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)
		db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
			return p.RoomId == 1 && p.SenderId == 2 && p.Content == "hello" && p.Type == database.MessageText
		})).Return(database.Message{Id: 7, RoomId: 1, SenderId: 2, SenderName: "bob", Content: "hello", Type: database.MessageText}, nil)
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e rewards.Event) bool {
			return e.AccountId == 2 && e.RoomId == "abc" && e.MessageId == 7 && e.Points == rewards.PointsPerMessage
		})).Return(nil)

		msg, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{Content: "hello"})
		assert.NoError(t, err)
		assert.Equal(t, 7, msg.Id)
		assert.Equal(t, "abc", msg.RoomId)
		pub.AssertExpectations(t)
	})

	t.Run("reward publish failure is swallowed", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, pub := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)
		db.On("CreateMessage", mock.Anything).Return(database.Message{Id: 7, RoomId: 1, SenderId: 2}, nil)
		pub.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{Content: "hello"})
		assert.NoError(t, err)
	})

	t.Run("non-member cannot send", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(nil, database.ErrNotFound)

		_, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{Content: "hello"})
		assert.ErrorIs(t, err, ErrForbidden)
		db.AssertNotCalled(t, "CreateMessage", mock.Anything)
	})

	t.Run("text without content", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		_, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{Type: database.MessageText})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("text with media reference", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		_, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{
			Content:  "hello",
			MediaUrl: "https://cdn.example.com/x.png",
		})
		assert.ErrorIs(t, err, ErrInvalidArgument)
		db.AssertNotCalled(t, "CreateMessage", mock.Anything)
	})

	t.Run("system with media reference", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		_, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{
			Type:          database.MessageSystem,
			Content:       "room renamed",
			MediaFilename: "x.png",
		})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("image without media url", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		_, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{Type: database.MessageImage})
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("image with media url", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, pub := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)
		db.On("CreateMessage", mock.MatchedBy(func(p database.CreateMessageParams) bool {
			return p.Type == database.MessageImage && p.MediaUrl == "https://cdn.example.com/x.png"
		})).Return(database.Message{Id: 8, RoomId: 1, SenderId: 2, Type: database.MessageImage}, nil)
		pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.SendMessage(context.Background(), types.User{Id: 2}, "abc", SendMessageParams{
			Type:     database.MessageImage,
			MediaUrl: "https://cdn.example.com/x.png",
		})
		assert.NoError(t, err)
	})
}

func TestListMessages(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	t.Run("defaults applied", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(activeMembership(2, database.RoleMember), nil)
		db.On("ListMessages", 1, 50, 0).Return([]database.Message{
			{Id: 1, RoomId: 1, Content: "one"},
			{Id: 2, RoomId: 1, Content: "two"},
		}, nil)

		messages, err := svc.ListMessages(types.User{Id: 2}, "abc", 0, -1)
		assert.NoError(t, err)
		assert.Len(t, messages, 2)
		assert.Equal(t, "abc", messages[0].RoomId)
	})

	t.Run("non-member denied", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMembership", 1, 2).Return(nil, database.ErrNotFound)

		_, err := svc.ListMessages(types.User{Id: 2}, "abc", 50, 0)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestDeleteMessage(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	t.Run("author deletes", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMessage", 7).Return(database.Message{Id: 7, RoomId: 1, SenderId: 2}, nil)
		db.On("SoftDeleteMessage", 7).Return(nil)

		assert.NoError(t, svc.DeleteMessage(types.User{Id: 2}, "abc", 7))
	})

	t.Run("creator cannot delete another author's message", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMessage", 7).Return(database.Message{Id: 7, RoomId: 1, SenderId: 2}, nil)

		assert.ErrorIs(t, svc.DeleteMessage(types.User{Id: 10}, "abc", 7), ErrForbidden)
		db.AssertNotCalled(t, "SoftDeleteMessage", mock.Anything)
	})

	t.Run("already tombstoned", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		deletedAt := time.Now()
		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMessage", 7).Return(database.Message{Id: 7, RoomId: 1, SenderId: 2, DeletedAt: &deletedAt}, nil)

		assert.ErrorIs(t, svc.DeleteMessage(types.User{Id: 2}, "abc", 7), database.ErrNotFound)
	})

	t.Run("message from another room", func(t *testing.T) {
		db := &database.MockStudyChatRepository{}
		svc, _ := newTestService(t, db)

		db.On("GetRoomByExternalId", "abc").Return(room, nil)
		db.On("GetMessage", 7).Return(database.Message{Id: 7, RoomId: 99, SenderId: 2}, nil)

		assert.ErrorIs(t, svc.DeleteMessage(types.User{Id: 2}, "abc", 7), database.ErrNotFound)
	})
}

func TestCanSend(t *testing.T) {
	room := database.Room{Id: 1, ExternalId: "abc", CreatorId: 10}

	tcases := []struct {
		name       string
		actor      types.User
		membership *database.Membership
		expected   bool
	}{
		{name: "active member", actor: types.User{Id: 2}, membership: activeMembership(2, database.RoleMember), expected: true},
		{name: "creator", actor: types.User{Id: 10}, expected: true},
		{name: "banned member", actor: types.User{Id: 2}, membership: &database.Membership{AccountId: 2, Status: database.StatusBanned}, expected: false},
		{name: "non-member", actor: types.User{Id: 2}, expected: false},
		{name: "system admin without membership", actor: types.User{Id: 3, IsAdmin: true}, expected: false},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			db := &database.MockStudyChatRepository{}
			svc, _ := newTestService(t, db)

			if tc.membership != nil {
				db.On("GetMembership", 1, tc.actor.Id).Return(tc.membership, nil)
			} else {
				db.On("GetMembership", 1, tc.actor.Id).Return(nil, database.ErrNotFound)
			}

			assert.Equal(t, tc.expected, svc.CanSend(tc.actor, room))
		})
	}
}
