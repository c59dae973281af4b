package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/example/moonjewelry/pkg/models"
	"github.com/example/moonjewelry/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryAudit struct {
	mu      sync.Mutex
	entries []*repository.AuditLog
}

func (m *memoryAudit) CreateAuditLog(_ context.Context, log *repository.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, log)
	return nil
}

type memoryFeed struct {
	mu     sync.Mutex
	events []FeedEvent
}

func (m *memoryFeed) Publish(event FeedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

type failingMailer struct {
	calls int
}

func (f *failingMailer) SendOrderConfirmation(context.Context, models.Order) error {
	f.calls++
	return errors.New("smtp down")
}

type fakeSES struct {
	input *ses.SendEmailInput
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestNotifierFansOut(t *testing.T) {
	audit := &memoryAudit{}
	feed := &memoryFeed{}
	mail := &failingMailer{}

	n, err := New(Sinks{Audit: audit, Mail: mail, Publisher: feed}, zap.NewNop())
	require.NoError(t, err)

	n.Send(&OrderPlaced{Order: models.Order{
		ID:          42,
		UserID:      7,
		Status:      models.OrderStatusCompleted,
		TotalAmount: decimal.RequireFromString("157.5"),
		PaymentID:   "pay_1",
	}})
	n.Send(&PaymentFailed{UserID: 7, Amount: decimal.NewFromInt(10), Reason: "declined"})
	n.Send(&OrderStatusChanged{OrderID: 42, UserID: 7, Status: models.OrderStatusShipped})

	require.NoError(t, n.Stop(5*time.Second))

	require.Len(t, audit.entries, 3)
	assert.Equal(t, repository.AuditOrderPlaced, audit.entries[0].Action)
	assert.Equal(t, "order:42", audit.entries[0].EntityID)
	assert.Equal(t, "157.50", audit.entries[0].Data["total"])
	assert.Equal(t, "storefront", audit.entries[0].Service)
	assert.Equal(t, repository.AuditPaymentFailed, audit.entries[1].Action)
	assert.Equal(t, "user:7", audit.entries[1].EntityID)
	assert.Equal(t, repository.AuditOrderStatus, audit.entries[2].Action)

	require.Len(t, feed.events, 2)
	assert.Equal(t, "shipped", feed.events[1].Status)
	assert.False(t, feed.events[0].At.IsZero())

	assert.Equal(t, 1, mail.calls, "mail failures are logged, not retried")
}

func TestNotifierWithoutSinks(t *testing.T) {
	n, err := New(Sinks{}, zap.NewNop())
	require.NoError(t, err)
	n.Send(&OrderPlaced{Order: models.Order{ID: 1}})
	n.Send(&ProfileUpdated{UserID: 1})
	assert.NoError(t, n.Stop(5*time.Second))

	var nilNotifier *Notifier
	nilNotifier.Send(&ProfileUpdated{UserID: 1})
	assert.NoError(t, nilNotifier.Stop(time.Second))
}

func TestSESMailer(t *testing.T) {
	client := &fakeSES{}
	m := NewMailer(client, "shop@moon.example", zap.NewNop())

	order := models.Order{
		ID:          9,
		FullName:    "Ada <Lovelace>",
		Email:       "ada@example.com",
		TotalAmount: decimal.RequireFromString("45.5"),
		Items: []models.OrderItem{{
			JewelryID: 2,
			Jewelry:   models.Jewelry{Name: "Chain"},
			Quantity:  1,
			Price:     decimal.RequireFromString("45.5"),
		}},
	}
	require.NoError(t, m.SendOrderConfirmation(context.Background(), order))

	require.NotNil(t, client.input)
	assert.Equal(t, "shop@moon.example", *client.input.Source)
	assert.Equal(t, []string{"ada@example.com"}, client.input.Destination.ToAddresses)
	assert.Contains(t, *client.input.Message.Subject.Data, "#9")
	assert.Contains(t, *client.input.Message.Body.Text.Data, "Chain x1  $45.50")
	assert.Contains(t, *client.input.Message.Body.Html.Data, "Ada &lt;Lovelace&gt;")

	assert.Error(t, m.SendOrderConfirmation(context.Background(), models.Order{ID: 10}))
}
