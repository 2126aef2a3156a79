// Package rewards publishes point-award events for consumption by the
// rewards pipeline. Publishing is fire-and-forget: a lost event costs a
// user a point, never a message.
package rewards

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Queue the rewards consumer drains.
	rewardQueue = "studychat:rewards"

	// Points granted per chat message.
	PointsPerMessage = 1

	publishTimeout = 2 * time.Second
)

type Event struct {
	Id        string    `json:"id"`
	AccountId int       `json:"account_id"`
	RoomId    string    `json:"room_id"`
	MessageId int       `json:"message_id"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessageEvent builds a reward event for a persisted chat message.
func NewMessageEvent(accountId int, roomId string, messageId int) Event {
	return Event{
		Id:        uuid.NewString(),
		AccountId: accountId,
		RoomId:    roomId,
		MessageId: messageId,
		Points:    PointsPerMessage,
		CreatedAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.client.LPush(ctx, rewardQueue, payload).Err()
}
