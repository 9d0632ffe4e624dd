package eventbus_test

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clydetadiwa/folio/internal/eventbus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishAndReceive(t *testing.T) {
	bus := eventbus.New(2, testLogger())
	defer bus.Close()

	var received []eventbus.Event
	var mu sync.Mutex

	bus.Subscribe(func(e eventbus.Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	bus.Publish(eventbus.EventPostPublished, map[string]string{"id": "7"})

	// Give workers time to process
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, eventbus.EventPostPublished, received[0].Type)
	assert.Equal(t, "7", received[0].Payload["id"])
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestMultipleListeners(t *testing.T) {
	bus := eventbus.New(2, testLogger())
	defer bus.Close()

	var count int32

	for i := 0; i < 3; i++ {
		bus.Subscribe(func(_ eventbus.Event) {
			atomic.AddInt32(&count, 1)
		})
	}

	bus.Publish(eventbus.EventProjectPublished, nil)
	time.Sleep(50 * time.Millisecond)

	assert.EqualValues(t, 3, atomic.LoadInt32(&count))
}

func TestListenerPanicDoesNotCrash(t *testing.T) {
	bus := eventbus.New(1, testLogger())
	defer bus.Close()

	var after int32

	bus.Subscribe(func(_ eventbus.Event) {
		panic("boom")
	})
	bus.Subscribe(func(_ eventbus.Event) {
		atomic.AddInt32(&after, 1)
	})

	bus.Publish(eventbus.EventPostPublished, nil)
	time.Sleep(50 * time.Millisecond)

	assert.EqualValues(t, 1, atomic.LoadInt32(&after),
		"a panicking listener must not prevent later listeners from running")
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := eventbus.New(1, testLogger())
	defer bus.Close()

	block := make(chan struct{})
	bus.Subscribe(func(_ eventbus.Event) {
		<-block
	})

	done := make(chan struct{})
	go func() {
		// Far more events than the buffer holds; extras are dropped.
		for i := 0; i < 500; i++ {
			bus.Publish(eventbus.EventPostPublished, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
	close(block)
}
