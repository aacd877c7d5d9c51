package event

import (
	"context"
	"encoding/json"
	"instavision/config"
	"instavision/internal/model"
	"log/slog"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

type Type string

const (
	UserRegistered    Type = "user.registered"
	UserDeleted       Type = "user.deleted"
	UserStatusChanged Type = "user.status_changed"
	UserPasswordReset Type = "user.password_reset"
)

// Event 用户生命周期事件，不含任何凭据
type Event struct {
	Type       Type         `json:"type"`
	UserID     uint         `json:"user_id"`
	Email      string       `json:"email"`
	Role       model.Role   `json:"role"`
	Status     model.Status `json:"status"`
	ActorID    uint         `json:"actor_id,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewUserEvent 根据用户当前状态构造事件
func NewUserEvent(t Type, user *model.User, actorID uint) Event {
	return Event{
		Type:       t,
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		Status:     user.Status,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher 发布用户生命周期事件
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Bus 配置了 Kafka 时写入 Kafka，否则走进程内 gochannel
type Bus struct {
	publisher message.Publisher
	local     *gochannel.GoChannel
	topic     string
}

func New(cfg config.Kafka, log *slog.Logger) (*Bus, error) {
	logger := watermill.NewSlogLogger(log)
	topic := cfg.Topic
	if topic == "" {
		topic = "user.events"
	}

	if len(cfg.Brokers) == 0 {
		local := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return &Bus{publisher: local, local: local, topic: topic}, nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers: cfg.Brokers,
		// 同一用户的事件落在同一分区，保证顺序
		Marshaler: kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
			return msg.Metadata.Get("user_id"), nil
		}),
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka publisher")
	}
	return &Bus{publisher: publisher, topic: topic}, nil
}

func (b *Bus) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.WithStack(err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", string(e.Type))
	msg.Metadata.Set("user_id", strconv.FormatUint(uint64(e.UserID), 10))
	msg.SetContext(ctx)
	return errors.Wrapf(b.publisher.Publish(b.topic, msg), "publish %s", e.Type)
}

// Subscribe 订阅进程内事件；使用 Kafka 时由下游服务自行消费
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if b.local == nil {
		return nil, errors.New("in-process subscription is not available with kafka")
	}
	return b.local.Subscribe(ctx, b.topic)
}

func (b *Bus) Close() error {
	return b.publisher.Close()
}
