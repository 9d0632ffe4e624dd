package mailer_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clydetadiwa/folio/internal/config"
	"github.com/clydetadiwa/folio/internal/mailer"
)

// stubTransport records every send attempt and can be scripted to fail for
// specific recipients or attempt numbers.
type stubTransport struct {
	kind     config.TransportKind
	sendTime time.Duration

	// fail decides the outcome of one attempt; nil means always succeed.
	fail func(to string, attempt int) error

	mu       sync.Mutex
	attempts map[string]int
	order    []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newStubTransport(kind config.TransportKind) *stubTransport {
	return &stubTransport{kind: kind, attempts: make(map[string]int)}
}

func (s *stubTransport) Kind() config.TransportKind { return s.kind }

func (s *stubTransport) Send(_ context.Context, msg mailer.Message) error {
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		maxSeen := s.maxInFlight.Load()
		if cur <= maxSeen || s.maxInFlight.CompareAndSwap(maxSeen, cur) {
			break
		}
	}

	if s.sendTime > 0 {
		time.Sleep(s.sendTime)
	}

	s.mu.Lock()
	s.attempts[msg.To]++
	n := s.attempts[msg.To]
	s.order = append(s.order, msg.To)
	fail := s.fail
	s.mu.Unlock()

	if fail != nil {
		return fail(msg.To, n)
	}
	return nil
}

func (s *stubTransport) attemptsFor(to string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[to]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy(maxAttempts int) mailer.DispatcherOption {
	return mailer.WithRetryPolicy(mailer.RetryPolicy{MaxAttempts: maxAttempts, InitialDelay: time.Millisecond})
}

func messagesFor(emails ...string) []mailer.Message {
	msgs := make([]mailer.Message, 0, len(emails))
	for _, e := range emails {
		msgs = append(msgs, mailer.Message{To: e, Subject: "s", HTMLBody: "<p>b</p>"})
	}
	return msgs
}

func TestDispatchDeduplicatesRecipients(t *testing.T) {
	stub := newStubTransport(config.TransportAPI)
	d := mailer.NewDispatcher(stub, testLogger(), fastPolicy(1), mailer.WithThrottle(2, 0))

	// The second entry is a case/whitespace variant of the first.
	res := d.Dispatch(context.Background(), messagesFor("a@x.com", "A@X.com ", "b@x.com"))

	require.Equal(t, 2, res.Sent)
	require.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, stub.attemptsFor("a@x.com"))
	assert.Equal(t, 0, stub.attemptsFor("A@X.com "))
	assert.Equal(t, 1, stub.attemptsFor("b@x.com"))
}

func TestDispatchAllAttempted(t *testing.T) {
	stub := newStubTransport(config.TransportAPI)
	d := mailer.NewDispatcher(stub, testLogger(), fastPolicy(1), mailer.WithThrottle(4, 0))

	var emails []string
	for i := 0; i < 25; i++ {
		emails = append(emails, fmt.Sprintf("reader%d@example.com", i))
	}
	res := d.Dispatch(context.Background(), messagesFor(emails...))

	require.Equal(t, 25, res.Sent)
	require.Equal(t, 0, res.Failed)
	for _, e := range emails {
		assert.Equal(t, 1, stub.attemptsFor(e), "recipient %s", e)
	}
}

func TestDispatchPartialFailureIsolation(t *testing.T) {
	stub := newStubTransport(config.TransportAPI)
	stub.fail = func(to string, _ int) error {
		if to == "broken@example.com" {
			return &mailer.TransportError{Kind: mailer.KindConnectionRefused, Err: fmt.Errorf("refused")}
		}
		return nil
	}
	d := mailer.NewDispatcher(stub, testLogger(), fastPolicy(2), mailer.WithThrottle(3, 0))

	res := d.Dispatch(context.Background(), messagesFor(
		"a@example.com", "broken@example.com", "b@example.com", "c@example.com",
	))

	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, 1, res.Failed)
	// The failing recipient exhausted its retries.
	assert.Equal(t, 2, stub.attemptsFor("broken@example.com"))
}

func TestDispatchConcurrencyBound(t *testing.T) {
	stub := newStubTransport(config.TransportSMTP)
	stub.sendTime = 20 * time.Millisecond
	d := mailer.NewDispatcher(stub, testLogger(), fastPolicy(1), mailer.WithThrottle(2, 0))

	var emails []string
	for i := 0; i < 10; i++ {
		emails = append(emails, fmt.Sprintf("r%d@example.com", i))
	}
	res := d.Dispatch(context.Background(), messagesFor(emails...))

	assert.Equal(t, 10, res.Sent)
	assert.LessOrEqual(t, stub.maxInFlight.Load(), int32(2),
		"no more than 2 sends may be in flight at once")
}

func TestDispatchEmptyBatch(t *testing.T) {
	stub := newStubTransport(config.TransportAPI)
	d := mailer.NewDispatcher(stub, testLogger())

	res := d.Dispatch(context.Background(), nil)
	assert.Zero(t, res.Sent)
	assert.Zero(t, res.Failed)

	// Blank recipients are dropped, not attempted.
	res = d.Dispatch(context.Background(), messagesFor("", "  "))
	assert.Zero(t, res.Sent)
	assert.Zero(t, res.Failed)
}

func TestDispatchDeadlineCountsUnclaimedAsFailed(t *testing.T) {
	stub := newStubTransport(config.TransportSMTP)
	stub.sendTime = 30 * time.Millisecond
	d := mailer.NewDispatcher(stub, testLogger(),
		fastPolicy(1),
		mailer.WithThrottle(1, 0),
		mailer.WithBatchTimeout(45*time.Millisecond),
	)

	res := d.Dispatch(context.Background(), messagesFor(
		"a@example.com", "b@example.com", "c@example.com", "d@example.com",
	))

	// The count invariant holds even when the deadline cuts the batch short.
	assert.Equal(t, 4, res.Sent+res.Failed)
	assert.Greater(t, res.Failed, 0)
}
