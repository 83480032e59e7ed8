package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBus_FanOut(t *testing.T) {
	bus := NewBus()
	a, unsubA := bus.Subscribe()
	b, unsubB := bus.Subscribe()
	defer unsubB()

	bus.Publish(New(TypeOrderPlaced, 7, "order:1", map[string]any{"order_id": 1}))

	got := <-a
	assert.Equal(t, TypeOrderPlaced, got.Type)
	assert.Equal(t, int64(7), got.ActorID)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, got.ID, (<-b).ID)

	unsubA()
	_, open := <-a
	assert.False(t, open)
	unsubA()
}

func TestInMemoryBus_PublishDoesNotBlock(t *testing.T) {
	bus := NewBus()
	_, unsub := bus.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(New(TypeUserLoggedIn, 1, "", nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestInMemoryBus_Close(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe()

	bus.Close()
	_, open := <-ch
	assert.False(t, open)
	unsub()
}

func TestFailure(t *testing.T) {
	e := Failure(TypeLoginFailed, 0, "user:alice@example.com", nil)
	assert.True(t, e.Failed)
	assert.Equal(t, TypeLoginFailed, e.Type)
}

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func TestKafkaForwarder_Forward(t *testing.T) {
	w := &recordingWriter{}
	f := NewKafkaForwarder(w)

	e := New(TypeOrderPlaced, 42, "order:9", map[string]any{"total_amount": "99.97"})
	require.NoError(t, f.Forward(context.Background(), e))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, "order:9", decoded.Resource)
}

func TestKafkaForwarder_RunDrainsUntilClosed(t *testing.T) {
	w := &recordingWriter{}
	f := NewKafkaForwarder(w)
	bus := NewBus()
	events, unsub := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		f.Run(context.Background(), events)
		close(done)
	}()

	bus.Publish(New(TypeUserSignedUp, 1, "user:1", nil))
	bus.Publish(New(TypeUserLoggedIn, 1, "user:1", nil))

	assert.Eventually(t, func() bool { return w.count() == 2 }, time.Second, 10*time.Millisecond)

	unsub()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after unsubscribe")
	}
}

func TestKafkaForwarder_WriteError(t *testing.T) {
	f := NewKafkaForwarder(&recordingWriter{err: errors.New("broker unreachable")})

	err := f.Forward(context.Background(), New(TypeUserLoggedOut, 3, "", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}
