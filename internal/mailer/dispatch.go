package mailer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/clydetadiwa/folio/internal/config"
)

// Dispatch parameters per transport variant. SMTP relays are far more
// rate-sensitive than the transactional API, so they get fewer workers and
// a longer pause between messages.
const (
	apiConcurrency  = 10
	apiMessageDelay = 100 * time.Millisecond

	smtpConcurrency  = 2
	smtpMessageDelay = 400 * time.Millisecond
)

// DispatchResult is the aggregate outcome of one batch. Sent+Failed always
// equals the number of unique recipients in the batch.
type DispatchResult struct {
	Sent   int
	Failed int
}

// Dispatcher fans a batch of messages out across a fixed-size worker pool
// with provider-aware throttling. Individual failures never abort the batch.
type Dispatcher struct {
	transport    Transport
	policy       RetryPolicy
	concurrency  int
	messageDelay time.Duration
	batchTimeout time.Duration
	logger       *slog.Logger
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRetryPolicy overrides the per-message retry policy.
func WithRetryPolicy(p RetryPolicy) DispatcherOption {
	return func(d *Dispatcher) { d.policy = p }
}

// WithBatchTimeout bounds one whole dispatch call. Zero disables the bound.
func WithBatchTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.batchTimeout = timeout }
}

// WithThrottle overrides the transport-derived concurrency and
// inter-message delay. Used by tests.
func WithThrottle(concurrency int, delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if concurrency >= 1 {
			d.concurrency = concurrency
		}
		d.messageDelay = delay
	}
}

// NewDispatcher creates a Dispatcher for the given transport. Concurrency,
// throttling and retry policy derive from the transport variant unless
// overridden by options.
func NewDispatcher(t Transport, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transport:    t,
		policy:       DefaultRetryPolicy(t.Kind()),
		batchTimeout: 10 * time.Minute,
		logger:       logger,
	}
	if t.Kind() == config.TransportAPI {
		d.concurrency = apiConcurrency
		d.messageDelay = apiMessageDelay
	} else {
		d.concurrency = smtpConcurrency
		d.messageDelay = smtpMessageDelay
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch deduplicates recipients, then delivers every unique message
// through a pool of workers that claim work from a shared cursor. It
// returns once all workers have drained the cursor (or the batch deadline
// expired, in which case unclaimed messages count as failures).
func (d *Dispatcher) Dispatch(ctx context.Context, messages []Message) DispatchResult {
	unique := dedupe(messages)
	if len(unique) == 0 {
		return DispatchResult{}
	}

	if d.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.batchTimeout)
		defer cancel()
	}

	batchID := uuid.NewString()
	transport := string(d.transport.Kind())
	start := time.Now()

	workers := d.concurrency
	if workers > len(unique) {
		workers = len(unique)
	}

	d.logger.Info("dispatching batch",
		slog.String("batch_id", batchID),
		slog.String("transport", transport),
		slog.Int("recipients", len(unique)),
		slog.Int("workers", workers),
	)

	// cursor hands out message indexes with fetch-and-increment semantics:
	// no message is claimed twice, none is skipped.
	var cursor, sent, failed atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				idx := cursor.Add(1) - 1
				if idx >= int64(len(unique)) {
					return
				}
				msg := unique[idx]

				err := SendWithRetry(ctx, d.transport, msg, d.policy)
				if err == nil {
					sent.Add(1)
					mailSent.WithLabelValues(transport).Inc()
				} else {
					failed.Add(1)
					mailFailed.WithLabelValues(transport).Inc()
					d.logger.Error("send failed",
						slog.String("batch_id", batchID),
						slog.Int("worker", workerID),
						slog.String("recipient", msg.To),
						slog.Any("error", err),
					)
				}

				sleepContext(ctx, d.messageDelay)
			}
		}(w)
	}
	wg.Wait()

	result := DispatchResult{Sent: int(sent.Load()), Failed: int(failed.Load())}
	if skipped := len(unique) - result.Sent - result.Failed; skipped > 0 {
		// Batch deadline expired before every message was claimed.
		result.Failed += skipped
		d.logger.Error("batch deadline expired with unclaimed messages",
			slog.String("batch_id", batchID),
			slog.Int("unclaimed", skipped),
		)
	}

	dispatchBatches.WithLabelValues(transport).Inc()
	dispatchDuration.WithLabelValues(transport).Observe(time.Since(start).Seconds())

	d.logger.Info("batch complete",
		slog.String("batch_id", batchID),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result
}

// dedupe keeps the first message per case-normalized, trimmed recipient
// address, preserving input order and the content of the first occurrence.
// Messages with an empty recipient are dropped.
func dedupe(messages []Message) []Message {
	seen := make(map[string]struct{}, len(messages))
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		key := strings.ToLower(strings.TrimSpace(m.To))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}
