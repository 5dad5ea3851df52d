package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"plantmart/internal/models"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	a := m.Called(name, durable, autoDelete, exclusive, noWait, args)
	return amqp.Queue{Name: name}, a.Error(0)
}

func (m *MockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	a := m.Called(exchange, key, mandatory, immediate, msg)
	return a.Error(0)
}

func (m *MockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	a := m.Called(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
	if a.Get(0) == nil {
		return nil, a.Error(1)
	}
	return a.Get(0).(<-chan amqp.Delivery), a.Error(1)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestClient(t *testing.T) (*Client, *MockChannel) {
	t.Helper()
	ch := new(MockChannel)
	ch.On("QueueDeclare", OrderQueue, true, false, false, false, amqp.Table(nil)).Return(nil)
	client, err := NewClientWithChannel(ch, quiet())
	require.NoError(t, err)
	return client, ch
}

func sampleOrder() models.OrderConfirmation {
	return models.OrderConfirmation{
		ID:     "order-1",
		UserID: "user-1",
		Items: []models.OrderLine{
			{ProductID: "7", Name: "Organic Carrots", Price: "4.50€/kg", Quantity: 2},
		},
		ItemCount:   2,
		ConfirmedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewClientWithChannel_DeclareFailureClosesChannel(t *testing.T) {
	ch := new(MockChannel)
	ch.On("QueueDeclare", OrderQueue, true, false, false, false, amqp.Table(nil)).Return(errors.New("access refused"))
	ch.On("Close").Return(nil).Once()

	_, err := NewClientWithChannel(ch, quiet())
	assert.Error(t, err)
	ch.AssertExpectations(t)
}

func TestPublishOrderConfirmed(t *testing.T) {
	client, ch := newTestClient(t)
	var sent amqp.Publishing
	ch.On("Publish", "", OrderQueue, false, false, mock.AnythingOfType("amqp.Publishing")).
		Run(func(args mock.Arguments) { sent = args.Get(4).(amqp.Publishing) }).
		Return(nil).Once()

	require.NoError(t, client.PublishOrderConfirmed(context.Background(), sampleOrder()))

	assert.Equal(t, "application/json", sent.ContentType)
	assert.Equal(t, RoutingKeyOrderConfirmed, sent.Type)
	assert.Equal(t, amqp.Persistent, sent.DeliveryMode)

	var decoded models.OrderConfirmation
	require.NoError(t, json.Unmarshal(sent.Body, &decoded))
	assert.Equal(t, sampleOrder(), decoded)
	ch.AssertExpectations(t)
}

func TestPublish_Errors(t *testing.T) {
	client, ch := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, client.Publish(ctx, RoutingKeyOrderConfirmed, []byte("{}")), context.Canceled)

	ch.On("Publish", "", OrderQueue, false, false, mock.Anything).Return(errors.New("channel closed")).Once()
	err := client.Publish(context.Background(), RoutingKeyOrderConfirmed, []byte("{}"))
	assert.ErrorContains(t, err, "failed to publish message")

	assert.Error(t, (&Client{log: quiet()}).Publish(context.Background(), "x", nil))
}

func TestSettle(t *testing.T) {
	client, _ := newTestClient(t)
	body, _ := json.Marshal(sampleOrder())
	ctx := context.Background()

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var got models.OrderConfirmation
		client.settle(ctx, ack, body, false, 1, func(_ context.Context, o models.OrderConfirmation) error {
			got = o
			return nil
		})
		assert.True(t, ack.acked)
		assert.Equal(t, "order-1", got.ID)
	})

	t.Run("requeue first failure", func(t *testing.T) {
		ack := &fakeAck{}
		client.settle(ctx, ack, body, false, 2, func(context.Context, models.OrderConfirmation) error {
			return errors.New("mailer down")
		})
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})

	t.Run("drop redelivered failure", func(t *testing.T) {
		ack := &fakeAck{}
		client.settle(ctx, ack, body, true, 3, func(context.Context, models.OrderConfirmation) error {
			return errors.New("mailer down")
		})
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})

	t.Run("drop undecodable", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		client.settle(ctx, ack, []byte("not json"), false, 4, func(context.Context, models.OrderConfirmation) error {
			called = true
			return nil
		})
		assert.False(t, called)
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})
}

func TestConsumeOrderEvents(t *testing.T) {
	client, ch := newTestClient(t)
	deliveries := make(chan amqp.Delivery)
	ch.On("Consume", OrderQueue, "", false, false, false, false, amqp.Table(nil)).
		Return((<-chan amqp.Delivery)(deliveries), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, client.ConsumeOrderEvents(ctx, func(context.Context, models.OrderConfirmation) error { return nil }))
	close(deliveries)
	ch.AssertExpectations(t)
}
