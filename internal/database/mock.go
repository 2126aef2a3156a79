package database

import (
	"github.com/stretchr/testify/mock"
)

type MockStudyChatRepository struct {
	mock.Mock
}

func (m *MockStudyChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockStudyChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStudyChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyChatRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyChatRepository) UpdateRoom(params UpdateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockStudyChatRepository) DeleteRoom(roomId int) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockStudyChatRepository) ListRoomsForUser(accountId int) ([]Room, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockStudyChatRepository) CountActiveMembers(roomId int) (int, error) {
	args := m.Called(roomId)
	return args.Int(0), args.Error(1)
}
func (m *MockStudyChatRepository) GetLatestMessage(roomId int) (*Message, error) {
	args := m.Called(roomId)
	if msg, ok := args.Get(0).(*Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStudyChatRepository) GetMembership(roomId, accountId int) (*Membership, error) {
	args := m.Called(roomId, accountId)
	if member, ok := args.Get(0).(*Membership); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockStudyChatRepository) ListMembers(roomId int) ([]Membership, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Membership), args.Error(1)
}
func (m *MockStudyChatRepository) UpdateMembershipRole(roomId, accountId int, role string) (Membership, error) {
	args := m.Called(roomId, accountId, role)
	return args.Get(0).(Membership), args.Error(1)
}
func (m *MockStudyChatRepository) BanMember(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockStudyChatRepository) MarkMemberLeft(roomId, accountId int) error {
	args := m.Called(roomId, accountId)
	return args.Error(0)
}
func (m *MockStudyChatRepository) CreateJoinRequest(params CreateJoinRequestParams) (JoinRequest, error) {
	args := m.Called(params)
	return args.Get(0).(JoinRequest), args.Error(1)
}
func (m *MockStudyChatRepository) GetJoinRequest(requestId int) (JoinRequest, error) {
	args := m.Called(requestId)
	return args.Get(0).(JoinRequest), args.Error(1)
}
func (m *MockStudyChatRepository) ListJoinRequests(roomId int, status string) ([]JoinRequest, error) {
	args := m.Called(roomId, status)
	return args.Get(0).([]JoinRequest), args.Error(1)
}
func (m *MockStudyChatRepository) ApproveJoinRequest(requestId, processorId int) (JoinRequest, error) {
	args := m.Called(requestId, processorId)
	return args.Get(0).(JoinRequest), args.Error(1)
}
func (m *MockStudyChatRepository) RejectJoinRequest(requestId, processorId int) (JoinRequest, error) {
	args := m.Called(requestId, processorId)
	return args.Get(0).(JoinRequest), args.Error(1)
}
func (m *MockStudyChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockStudyChatRepository) GetMessage(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockStudyChatRepository) ListMessages(roomId, limit, offset int) ([]Message, error) {
	args := m.Called(roomId, limit, offset)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockStudyChatRepository) SoftDeleteMessage(messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
