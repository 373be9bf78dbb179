package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SubSh2004/CampusZon-sub000/pkg/logger"
)

// EventType 通知事件类型，同时作为 MQ routing key
type EventType string

const (
	EventBookingCreated  EventType = "booking.created"
	EventBookingAccepted EventType = "booking.accepted"
	EventBookingRejected EventType = "booking.rejected"
	EventItemReported    EventType = "item.reported"
	EventItemUnlocked    EventType = "item.unlocked"
)

// Event 推送给外部通知通道的消息
type Event struct {
	Type      EventType `json:"type"`
	Recipient string    `json:"recipient"`
	ActorID   string    `json:"actor_id,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	BookingID string    `json:"booking_id,omitempty"`
	At        time.Time `json:"at"`
}

// EventPublisher 外部推送通道（RabbitMQ 实现见 pkg/mq）
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Dispatcher 本地异步通知执行器：状态变更提交后入队，投递失败只记录日志，
// 不影响已提交的业务状态
type Dispatcher struct {
	pub EventPublisher
	ch  chan Event
}

func NewDispatcher(pub EventPublisher, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{pub: pub, ch: make(chan Event, queueSize)}
}

func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case evt := <-d.ch:
					d.deliver(evt)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		// 尽量把队列里剩余的事件发完
		for {
			select {
			case evt := <-d.ch:
				d.deliver(evt)
			case <-ctx.Done():
				return ctx.Err()
			default:
				return nil
			}
		}
	}
}

func (d *Dispatcher) deliver(evt Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if d.pub == nil {
		logger.Debug("notification", zap.String("type", string(evt.Type)), zap.String("recipient", evt.Recipient))
		return
	}
	if err := d.pub.PublishJSON(ctx, string(evt.Type), evt); err != nil {
		logger.Warn("notification publish failed, dropped",
			zap.String("type", string(evt.Type)),
			zap.String("recipient", evt.Recipient),
			zap.Error(err),
		)
	}
}

// Emit 非阻塞入队；队列已满时丢弃。nil Dispatcher 上调用是安全的。
func (d *Dispatcher) Emit(evt Event) {
	if d == nil || evt.Recipient == "" {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	select {
	case d.ch <- evt:
	default:
		logger.Warn("notification queue full, drop event",
			zap.String("type", string(evt.Type)),
			zap.String("recipient", evt.Recipient),
		)
	}
}

// QueueLen 返回当前队列长度（采样值）。
func (d *Dispatcher) QueueLen() int {
	if d == nil {
		return 0
	}
	return len(d.ch)
}
