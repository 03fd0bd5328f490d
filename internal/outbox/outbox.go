package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Message is one templated delivery.
type Message struct {
	Template  string
	Recipient string
	Vars      map[string]string
}

// Sender performs the actual delivery.
type Sender interface {
	Send(ctx context.Context, template, recipient string, vars map[string]string) error
}

// Config controls queueing and delivery behavior.
type Config struct {
	BufferSize  int
	DropIfFull  bool
	SendTimeout time.Duration
	// OnFailure, when set, is called from the worker after a failed or dropped
	// delivery.
	OnFailure func(template string, err error)
}

// Stats is a snapshot of delivery counters.
type Stats struct {
	Sent    uint64
	Failed  uint64
	Dropped uint64
}

var errQueueFull = errors.New("outbox queue full")

// Outbox asynchronously forwards messages to a Sender.
type Outbox struct {
	cfg    Config
	sender Sender
	logger zerolog.Logger

	ch   chan Message
	done chan struct{}
	wg   sync.WaitGroup
	// mu is held shared by Enqueue across its send and exclusively by Close
	// once done is closed, so no send can land after the final drain.
	mu        sync.RWMutex
	sent      atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts the worker. A nil sender makes every Enqueue a logged no-op.
func New(cfg Config, sender Sender, logger zerolog.Logger) *Outbox {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	o := &Outbox{
		cfg:    cfg,
		sender: sender,
		logger: logger.With().Str("component", "outbox").Logger(),
		ch:     make(chan Message, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	o.wg.Add(1)
	go o.run()

	return o
}

func (o *Outbox) run() {
	defer o.wg.Done()

	for {
		select {
		case msg := <-o.ch:
			o.deliver(msg)
		case <-o.done:
			o.drain()
			return
		}
	}
}

func (o *Outbox) drain() {
	for {
		select {
		case msg := <-o.ch:
			o.deliver(msg)
		default:
			return
		}
	}
}

func (o *Outbox) deliver(msg Message) {
	if o.sender == nil {
		o.logger.Debug().
			Str("template", msg.Template).
			Str("recipient", msg.Recipient).
			Msg("no sender configured, message discarded")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.SendTimeout)
	defer cancel()

	err := o.send(ctx, msg)
	if err == nil {
		o.sent.Add(1)
		return
	}

	o.failed.Add(1)
	o.logger.Warn().
		Err(err).
		Str("template", msg.Template).
		Str("recipient", msg.Recipient).
		Msg("message delivery failed")
	if o.cfg.OnFailure != nil {
		o.cfg.OnFailure(msg.Template, err)
	}
}

func (o *Outbox) send(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return o.sender.Send(ctx, msg.Template, msg.Recipient, msg.Vars)
}

// Enqueue queues msg and reports whether it was accepted. With DropIfFull
// a full queue drops the message; otherwise Enqueue waits for space until ctx
// is done.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) bool {
	if o == nil || o.closed.Load() {
		return false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed.Load() {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if o.cfg.DropIfFull {
		select {
		case o.ch <- msg:
			return true
		case <-o.done:
			return false
		default:
			o.drop(msg)
			return false
		}
	}

	select {
	case o.ch <- msg:
		return true
	case <-ctx.Done():
		o.drop(msg)
		return false
	case <-o.done:
		return false
	}
}

func (o *Outbox) drop(msg Message) {
	o.dropped.Add(1)
	o.logger.Warn().
		Str("template", msg.Template).
		Str("recipient", msg.Recipient).
		Msg("message dropped")
	if o.cfg.OnFailure != nil {
		o.cfg.OnFailure(msg.Template, errQueueFull)
	}
}

// Close stops accepting messages, delivers what is queued and waits for the
// worker to exit. It is safe to call more than once.
func (o *Outbox) Close() {
	if o == nil {
		return
	}
	o.closeOnce.Do(func() {
		close(o.done)
		o.mu.Lock()
		o.closed.Store(true)
		o.mu.Unlock()
		o.wg.Wait()
		o.drain()
	})
}

// Stats returns current counters.
func (o *Outbox) Stats() Stats {
	if o == nil {
		return Stats{}
	}
	return Stats{
		Sent:    o.sent.Load(),
		Failed:  o.failed.Load(),
		Dropped: o.dropped.Load(),
	}
}
