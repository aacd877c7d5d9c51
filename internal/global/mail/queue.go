package mail

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

const (
	topic = "mail.outbound"

	defaultSendTimeout  = 30 * time.Second
	defaultDrainTimeout = 10 * time.Second
)

var ErrQueueClosed = errors.New("mail queue closed")

// Dispatcher 交付邮件，不等待投递结果
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Queue 基于进程内 pub/sub 的邮件队列，由单个 worker 顺序投递
type Queue struct {
	pubsub *gochannel.GoChannel
	sender Sender
	log    *slog.Logger
	wg     sync.WaitGroup

	sendTimeout  time.Duration
	drainTimeout time.Duration
	pending      atomic.Int64 // 已交付但尚未处理完的邮件数
	closed       atomic.Bool
}

func NewQueue(sender Sender, log *slog.Logger) (*Queue, error) {
	return newQueue(sender, log, defaultSendTimeout, defaultDrainTimeout)
}

func newQueue(sender Sender, log *slog.Logger, sendTimeout, drainTimeout time.Duration) (*Queue, error) {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(log),
	)
	messages, err := pubsub.Subscribe(context.Background(), topic)
	if err != nil {
		return nil, errors.Wrap(err, "subscribe mail topic")
	}

	q := &Queue{
		pubsub:       pubsub,
		sender:       sender,
		log:          log,
		sendTimeout:  sendTimeout,
		drainTimeout: drainTimeout,
	}
	q.wg.Add(1)
	go q.run(messages)
	return q, nil
}

func (q *Queue) Dispatch(_ context.Context, msg Message) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.WithStack(err)
	}
	q.pending.Add(1)
	if err := q.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		q.pending.Add(-1)
		return errors.Wrap(err, "publish mail")
	}
	return nil
}

func (q *Queue) run(messages <-chan *message.Message) {
	defer q.wg.Done()
	for m := range messages {
		q.handle(m)
		m.Ack()
		q.pending.Add(-1)
	}
}

func (q *Queue) handle(m *message.Message) {
	var msg Message
	if err := json.Unmarshal(m.Payload, &msg); err != nil {
		q.log.Error("邮件消息解析失败", "error", err, "message_uuid", m.UUID)
		return
	}
	// 单封邮件超时后放弃，避免卡住后续邮件
	ctx, cancel := context.WithTimeout(m.Context(), q.sendTimeout)
	defer cancel()
	// 投递失败只记录，不重试
	if err := q.sender.Send(ctx, msg); err != nil {
		q.log.Error("邮件发送失败", "error", err, "to", msg.To, "subject", msg.Subject)
		return
	}
	q.log.Info("邮件已发送", "to", msg.To, "subject", msg.Subject)
}

// Close 拒绝新邮件，等待队列中的邮件投递完毕（最多 drainTimeout）后停止 worker
func (q *Queue) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}

	deadline := time.Now().Add(q.drainTimeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for q.pending.Load() > 0 && time.Now().Before(deadline) {
		<-ticker.C
	}
	if dropped := q.pending.Load(); dropped > 0 {
		q.log.Warn("邮件队列关闭时仍有未投递的邮件，已丢弃", "dropped", dropped)
	}

	err := q.pubsub.Close()
	q.wg.Wait()
	return err
}
