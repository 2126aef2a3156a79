package database

type StudyChatRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)

	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	UpdateRoom(params UpdateRoomParams) (Room, error)
	DeleteRoom(roomId int) error
	ListRoomsForUser(accountId int) ([]Room, error)
	CountActiveMembers(roomId int) (int, error)
	GetLatestMessage(roomId int) (*Message, error)

	GetMembership(roomId, accountId int) (*Membership, error)
	ListMembers(roomId int) ([]Membership, error)
	UpdateMembershipRole(roomId, accountId int, role string) (Membership, error)
	BanMember(roomId, accountId int) error
	MarkMemberLeft(roomId, accountId int) error

	CreateJoinRequest(params CreateJoinRequestParams) (JoinRequest, error)
	GetJoinRequest(requestId int) (JoinRequest, error)
	ListJoinRequests(roomId int, status string) ([]JoinRequest, error)
	ApproveJoinRequest(requestId, processorId int) (JoinRequest, error)
	RejectJoinRequest(requestId, processorId int) (JoinRequest, error)

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessage(messageId int) (Message, error)
	ListMessages(roomId, limit, offset int) ([]Message, error)
	SoftDeleteMessage(messageId int) error
}
