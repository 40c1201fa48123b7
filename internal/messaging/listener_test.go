package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, source string) error {
	return m.Called(ctx, source).Error(0)
}

type fakeChannel struct {
	deliveries chan amqp.Delivery
	bindErr    error
	bound      []string
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: "amq.gen-test"}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bound = append(f.bound, name+"|"+key+"|"+exchange)
	return f.bindErr
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error { return nil }

// acks records the outcome of each delivery by tag.
type acks struct {
	mu      sync.Mutex
	outcome map[uint64]string
	done    chan struct{}
}

func newAcks() *acks {
	return &acks{outcome: make(map[uint64]string), done: make(chan struct{}, 16)}
}

func (a *acks) record(tag uint64, outcome string) error {
	a.mu.Lock()
	a.outcome[tag] = outcome
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *acks) Ack(tag uint64, multiple bool) error { return a.record(tag, "ack") }
func (a *acks) Nack(tag uint64, multiple, requeue bool) error {
	if requeue {
		return a.record(tag, "requeue")
	}
	return a.record(tag, "nack")
}
func (a *acks) Reject(tag uint64, requeue bool) error { return a.record(tag, "reject") }

func (a *acks) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i+1)
		}
	}
}

func TestDeclareBindAndConsume(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery)}
	msgs, err := DeclareBindAndConsume(ch, "catalog", "catalog.#")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Equal(t, []string{"amq.gen-test|catalog.#|catalog"}, ch.bound)

	ch.bindErr = errors.New("access refused")
	_, err = DeclareBindAndConsume(ch, "catalog", "catalog.#")
	assert.ErrorContains(t, err, "bind queue")
}

func TestListener_ProcessesDeliveries(t *testing.T) {
	inv := new(MockInvalidator)
	inv.On("Invalidate", mock.Anything, "amqp").Return(nil).Once()
	inv.On("Invalidate", mock.Anything, "amqp").Return(errors.New("redis down")).Once()

	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 3)}
	a := newAcks()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewListener(inv, zap.NewNop())
	require.NoError(t, l.Listen(ctx, ch, "catalog", "catalog.#"))

	ch.deliveries <- amqp.Delivery{Acknowledger: a, DeliveryTag: 1, Body: []byte(`{"kind":"product"}`)}
	ch.deliveries <- amqp.Delivery{Acknowledger: a, DeliveryTag: 2, Body: []byte(`not json`)}
	ch.deliveries <- amqp.Delivery{Acknowledger: a, DeliveryTag: 3, Body: []byte(`{"kind":"category"}`)}
	a.wait(t, 3)

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, map[uint64]string{1: "ack", 2: "reject", 3: "requeue"}, a.outcome)
	inv.AssertExpectations(t)
}

func TestListener_StopsWhenChannelCloses(t *testing.T) {
	msgs := make(chan amqp.Delivery)
	close(msgs)
	done := make(chan struct{})
	go func() {
		NewListener(new(MockInvalidator), zap.NewNop()).Consume(context.Background(), msgs)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not return")
	}
}
