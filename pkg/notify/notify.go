package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Messages accepted by the notifier.

type OrderPlaced struct {
	Order models.Order
}

type PaymentFailed struct {
	UserID         uint
	Amount         decimal.Decimal
	IdempotencyKey string
	Reason         string
}

// OrderLost is sent when the provider charged the card but the order could
// not be written. Support has to reconcile these by hand.
type OrderLost struct {
	UserID    uint
	PaymentID string
	Amount    decimal.Decimal
	Reason    string
}

type ProfileUpdated struct {
	UserID uint
}

type OrderStatusChanged struct {
	OrderID uint
	UserID  uint
	Status  models.OrderStatus
}

// AuditSink stores audit entries. *repository.MongoRepository implements it.
type AuditSink interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order models.Order) error
}

// FeedEvent is what admin dashboards receive over the live order feed.
type FeedEvent struct {
	Type    string    `json:"type"`
	OrderID uint      `json:"order_id,omitempty"`
	UserID  uint      `json:"user_id,omitempty"`
	Status  string    `json:"status,omitempty"`
	Total   string    `json:"total,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(event FeedEvent)
}

// Sinks are optional; a nil sink is skipped.
type Sinks struct {
	Audit     AuditSink
	Mail      Mailer
	Publisher Publisher
}

const serviceName = "storefront"

type dispatcher struct {
	sinks   Sinks
	logger  *zap.Logger
	timeout time.Duration
}

func (a *dispatcher) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		order := msg.Order
		a.logger.Info("Order placed",
			zap.Uint("order_id", order.ID),
			zap.Uint("user_id", order.UserID),
			zap.String("total", order.TotalAmount.StringFixed(2)))

		a.audit(&repository.AuditLog{
			Action:   repository.AuditOrderPlaced,
			EntityID: OrderEntity(order.ID),
			UserID:   order.UserID,
			Data: bson.M{
				"payment_id": order.PaymentID,
				"total":      order.TotalAmount.StringFixed(2),
				"items":      len(order.Items),
			},
		})
		a.publish(FeedEvent{
			Type:    repository.AuditOrderPlaced,
			OrderID: order.ID,
			UserID:  order.UserID,
			Status:  string(order.Status),
			Total:   order.TotalAmount.StringFixed(2),
		})
		if a.sinks.Mail != nil {
			c, cancel := context.WithTimeout(context.Background(), a.timeout)
			if err := a.sinks.Mail.SendOrderConfirmation(c, order); err != nil {
				a.logger.Error("Failed to send order confirmation",
					zap.Uint("order_id", order.ID), zap.Error(err))
			}
			cancel()
		}

	case *PaymentFailed:
		a.logger.Warn("Payment failed",
			zap.Uint("user_id", msg.UserID),
			zap.String("idempotency_key", msg.IdempotencyKey),
			zap.String("reason", msg.Reason))
		a.audit(&repository.AuditLog{
			Action:   repository.AuditPaymentFailed,
			EntityID: userEntity(msg.UserID),
			UserID:   msg.UserID,
			Data: bson.M{
				"amount":          msg.Amount.StringFixed(2),
				"idempotency_key": msg.IdempotencyKey,
				"reason":          msg.Reason,
			},
		})

	case *OrderLost:
		a.logger.Error("Payment captured without order",
			zap.Uint("user_id", msg.UserID),
			zap.String("payment_id", msg.PaymentID),
			zap.String("reason", msg.Reason))
		a.audit(&repository.AuditLog{
			Action:   repository.AuditOrderLost,
			EntityID: userEntity(msg.UserID),
			UserID:   msg.UserID,
			Data: bson.M{
				"payment_id": msg.PaymentID,
				"amount":     msg.Amount.StringFixed(2),
				"reason":     msg.Reason,
			},
		})
		a.publish(FeedEvent{Type: repository.AuditOrderLost, UserID: msg.UserID, Total: msg.Amount.StringFixed(2)})

	case *ProfileUpdated:
		a.audit(&repository.AuditLog{
			Action:   repository.AuditProfileUpdated,
			EntityID: userEntity(msg.UserID),
			UserID:   msg.UserID,
		})

	case *OrderStatusChanged:
		a.audit(&repository.AuditLog{
			Action:   repository.AuditOrderStatus,
			EntityID: OrderEntity(msg.OrderID),
			UserID:   msg.UserID,
			Data:     bson.M{"status": string(msg.Status)},
		})
		a.publish(FeedEvent{
			Type:    repository.AuditOrderStatus,
			OrderID: msg.OrderID,
			UserID:  msg.UserID,
			Status:  string(msg.Status),
		})

	case *actor.Started:
		a.logger.Info("Notifier started")

	case *actor.Stopped:
		a.logger.Info("Notifier stopped")
	}
}

func (a *dispatcher) audit(entry *repository.AuditLog) {
	if a.sinks.Audit == nil {
		return
	}
	entry.Service = serviceName
	c, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.sinks.Audit.CreateAuditLog(c, entry); err != nil {
		a.logger.Error("Failed to write audit log",
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}
}

func (a *dispatcher) publish(event FeedEvent) {
	if a.sinks.Publisher == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	a.sinks.Publisher.Publish(event)
}

// OrderEntity is the audit entity id of an order.
func OrderEntity(id uint) string {
	return "order:" + strconv.FormatUint(uint64(id), 10)
}

func userEntity(id uint) string {
	return "user:" + strconv.FormatUint(uint64(id), 10)
}

// Notifier runs the side effects of checkout and back-office actions on an
// actor so request handlers never wait on mail or audit writes.
type Notifier struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

func New(sinks Sinks, logger *zap.Logger) (*Notifier, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &dispatcher{
			sinks:   sinks,
			logger:  logger.Named("notify-actor"),
			timeout: 10 * time.Second,
		}
	})
	pid, err := system.Root.SpawnNamed(props, "notifier")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn notifier: %w", err)
	}

	return &Notifier{system: system, pid: pid, logger: logger}, nil
}

// Send queues msg; it never blocks on the sinks.
func (n *Notifier) Send(msg interface{}) {
	if n == nil {
		return
	}
	n.system.Root.Send(n.pid, msg)
}

// Stop drains queued messages and stops the actor.
func (n *Notifier) Stop(timeout time.Duration) error {
	if n == nil {
		return nil
	}
	future := n.system.Root.PoisonFuture(n.pid)
	done := make(chan error, 1)
	go func() { done <- future.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("notifier did not stop within %s", timeout)
	}
}
