package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"parkingreserve/metrics"
	"parkingreserve/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
)

type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventCancelled EventType = "reservation.cancelled"
	EventCheckedIn EventType = "reservation.checked_in"
	EventCompleted EventType = "reservation.completed"
	EventExpired   EventType = "reservation.expired"
)

// Event 交易提交後發出的預約生命週期事件
type Event struct {
	Type            EventType                `json:"type"`
	ReservationID   int                      `json:"reservation_id"`
	Code            string                   `json:"code"`
	MemberID        int                      `json:"member_id"`
	LocationID      int                      `json:"location_id"`
	Status          models.ReservationStatus `json:"status"`
	StartTime       time.Time                `json:"start_time"`
	EndTime         time.Time                `json:"end_time"`
	TotalPrice      float64                  `json:"total_price"`
	RefundAmount    float64                  `json:"refund_amount,omitempty"`
	CancellationFee float64                  `json:"cancellation_fee,omitempty"`
	OverstayFee     float64                  `json:"overstay_fee,omitempty"`
	At              time.Time                `json:"at"`
}

func eventFrom(typ EventType, r *models.Reservation, at time.Time) Event {
	ev := Event{
		Type:          typ,
		ReservationID: r.ID,
		Code:          r.Code,
		MemberID:      r.MemberID,
		LocationID:    r.LocationID,
		Status:        r.Status,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		TotalPrice:    r.TotalPrice,
		At:            at,
	}
	if r.RefundAmount != nil {
		ev.RefundAmount = *r.RefundAmount
	}
	if r.CancellationFee != nil {
		ev.CancellationFee = *r.CancellationFee
	}
	if r.OverstayFee != nil {
		ev.OverstayFee = *r.OverstayFee
	}
	return ev
}

// Notifier 通知使用者的外部管道，失敗只記錄不回滾
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier 未設定 RabbitMQ 時的預設通知
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(_ context.Context, ev Event) error {
	log.Printf("Notify member %d: %s for reservation %s (location %d, status %s)",
		ev.MemberID, ev.Type, ev.Code, ev.LocationID, ev.Status)
	return nil
}

// AMQPNotifier 將事件以 persistent JSON 發佈到 durable queue
type AMQPNotifier struct {
	conn  *amqp.Connection
	queue string
}

func NewAMQPNotifier(url, queue string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare %s: %w", queue, err)
	}
	return &AMQPNotifier{conn: conn, queue: queue}, nil
}

func (n *AMQPNotifier) Name() string { return "amqp" }

// Notify 每次發佈開一個 channel，amqp channel 不可跨 goroutine 共用
func (n *AMQPNotifier) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	return ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         string(ev.Type),
		MessageId:    fmt.Sprintf("%s:%s", ev.Code, ev.Type),
		Body:         body,
	})
}

func (n *AMQPNotifier) Close() error {
	return n.conn.Close()
}

// Dispatcher 交易提交後非同步分送事件：通知、收據、行程內訂閱者
type Dispatcher struct {
	notifiers []Notifier
	receipts  ReceiptGenerator
	timeout   time.Duration
	limiter   *rate.Limiter

	mu          sync.RWMutex
	subscribers []func(Event)
	wg          sync.WaitGroup
}

// NewDispatcher perSecond 為訂閱者的事件速率上限，<= 0 表示不限速
func NewDispatcher(timeout time.Duration, perSecond float64, receipts ReceiptGenerator, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Dispatcher{
		notifiers: notifiers,
		receipts:  receipts,
		timeout:   timeout,
		limiter:   rate.NewLimiter(limit, burst),
	}
}

func (d *Dispatcher) Subscribe(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// Publish 不阻塞呼叫端；nil Dispatcher 直接忽略
func (d *Dispatcher) Publish(ev Event) {
	if d == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Event dispatch panicked for %s %s: %v", ev.Type, ev.Code, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.deliver(ctx, ev)
	}()
}

// Wait 等待已發出的事件處理完畢（關機與測試使用）
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, n := range d.notifiers {
		err := n.Notify(ctx, ev)
		metrics.Booking().ObserveDelivery(n.Name(), err)
		if err != nil {
			log.Printf("Notifier %s failed for %s %s: %v", n.Name(), ev.Type, ev.Code, err)
		}
	}

	if d.receipts != nil && (ev.Type == EventCompleted || ev.Type == EventCancelled) {
		err := d.receipts.Generate(ctx, ev)
		metrics.Booking().ObserveDelivery("receipt", err)
		if err != nil {
			log.Printf("Receipt generation failed for %s: %v", ev.Code, err)
		}
	}

	d.mu.RLock()
	subs := append([]func(Event){}, d.subscribers...)
	d.mu.RUnlock()
	if len(subs) == 0 {
		return
	}
	if err := d.limiter.Wait(ctx); err != nil {
		log.Printf("Dropped %s for %s: subscriber rate limit: %v", ev.Type, ev.Code, err)
		return
	}
	for _, fn := range subs {
		fn(ev)
	}
}
