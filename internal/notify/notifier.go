// internal/notify/notifier.go
//
// Fire-and-forget notification dispatch.
//
// Game-state transitions commit before anything is enqueued here, and nothing
// in this package can fail a request: delivery errors are retried a bounded
// number of times and then logged. A full queue drops the job (also logged)
// rather than blocking a request handler.

package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultQueueSize = 64
	sendAttempts     = 3
	retryDelay       = 2 * time.Second
)

type job struct {
	kind    string // "message" | "summary"
	phone   string
	body    string
	summary Summary
}

// Notifier owns the dispatch queue and worker goroutine.
type Notifier struct {
	messaging *MessagingClient
	webhook   *WebhookClient
	queue     chan job
	done      chan struct{}
}

// New constructs a Notifier over the two outbound clients.
func New(messaging *MessagingClient, webhook *WebhookClient) *Notifier {
	return &Notifier{
		messaging: messaging,
		webhook:   webhook,
		queue:     make(chan job, defaultQueueSize),
		done:      make(chan struct{}),
	}
}

// Start launches the worker. Cancel ctx to begin shutdown; the worker drains
// nothing further once cancelled.
func (n *Notifier) Start(ctx context.Context) {
	go func() {
		defer close(n.done)
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-n.queue:
				n.deliver(j)
			}
		}
	}()
}

// Wait blocks until the worker goroutine has exited.
func (n *Notifier) Wait() { <-n.done }

// MessageNow sends a WhatsApp message synchronously, bypassing the queue.
// Only for flows where the caller must know delivery failed, i.e.
// verification codes; game notifications always go through the queue.
func (n *Notifier) MessageNow(ctx context.Context, phone, body string) error {
	return n.messaging.Send(ctx, phone, body)
}

// Message enqueues a WhatsApp message. Never blocks.
func (n *Notifier) Message(phone, body string) {
	n.enqueue(job{kind: "message", phone: phone, body: body})
}

// GameSummary enqueues a chat-webhook report. Never blocks.
func (n *Notifier) GameSummary(s Summary) {
	n.enqueue(job{kind: "summary", summary: s})
}

func (n *Notifier) enqueue(j job) {
	select {
	case n.queue <- j:
	default:
		log.Warn().Str("kind", j.kind).Msg("notification queue full, dropping job")
	}
}

// deliver runs one job with bounded retries.
func (n *Notifier) deliver(j job) {
	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		switch j.kind {
		case "message":
			err = n.messaging.Send(ctx, j.phone, j.body)
		case "summary":
			err = n.webhook.Post(ctx, j.summary)
		}
		cancel()
		if err == nil {
			return
		}
		if attempt < sendAttempts {
			time.Sleep(retryDelay)
		}
	}
	log.Error().Err(err).Str("kind", j.kind).Int("attempts", sendAttempts).
		Msg("notification delivery failed")
}
