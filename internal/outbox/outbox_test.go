package outbox

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
	gate chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, template, recipient string, vars map[string]string) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, Message{Template: template, Recipient: recipient, Vars: vars})
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

type panicSender struct{}

func (panicSender) Send(context.Context, string, string, map[string]string) error {
	panic("boom")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestOutboxDeliversQueuedMessagesBeforeClose(t *testing.T) {
	sender := &recordingSender{}
	o := New(Config{BufferSize: 8}, sender, zerolog.Nop())

	for i := 0; i < 5; i++ {
		if !o.Enqueue(context.Background(), Message{Template: "verification-token", Recipient: "a@example.com"}) {
			t.Fatal("expected enqueue to succeed")
		}
	}
	o.Close()

	if sender.count() != 5 {
		t.Fatalf("expected 5 deliveries, got %d", sender.count())
	}
	if st := o.Stats(); st.Sent != 5 || st.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestOutboxFailureIsLoggedWithoutVars(t *testing.T) {
	var logs lockedBuffer
	var hookCalls int
	var hookMu sync.Mutex
	sender := &recordingSender{err: errors.New("smtp down")}
	o := New(Config{
		BufferSize: 2,
		OnFailure: func(string, error) {
			hookMu.Lock()
			hookCalls++
			hookMu.Unlock()
		},
	}, sender, zerolog.New(&logs))

	o.Enqueue(context.Background(), Message{
		Template:  "forgot-password",
		Recipient: "a@example.com",
		Vars:      map[string]string{"token": "raw-secret-token"},
	})
	o.Close()

	out := logs.String()
	if !strings.Contains(out, "smtp down") || !strings.Contains(out, "forgot-password") {
		t.Fatalf("expected failure to be logged, got %s", out)
	}
	if strings.Contains(out, "raw-secret-token") {
		t.Fatal("message vars must never be logged")
	}
	if o.Stats().Failed != 1 {
		t.Fatalf("expected one failure, got %+v", o.Stats())
	}
	hookMu.Lock()
	defer hookMu.Unlock()
	if hookCalls != 1 {
		t.Fatalf("expected failure hook once, got %d", hookCalls)
	}
}

func TestOutboxRecoversSenderPanic(t *testing.T) {
	o := New(Config{BufferSize: 1}, panicSender{}, zerolog.Nop())
	o.Enqueue(context.Background(), Message{Template: "t"})
	o.Close()

	if o.Stats().Failed != 1 {
		t.Fatalf("expected panic to count as failure, got %+v", o.Stats())
	}
}

func TestOutboxDropIfFullDoesNotBlock(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	o := New(Config{BufferSize: 1, DropIfFull: true}, sender, zerolog.Nop())
	defer func() {
		close(sender.gate)
		o.Close()
	}()

	o.Enqueue(context.Background(), Message{Template: "a"})
	o.Enqueue(context.Background(), Message{Template: "b"})

	start := time.Now()
	o.Enqueue(context.Background(), Message{Template: "c"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected enqueue to return immediately when full")
	}
	if o.Stats().Dropped == 0 {
		t.Fatal("expected a dropped message")
	}
}

func TestOutboxBlockingEnqueueHonorsContext(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	o := New(Config{BufferSize: 1, DropIfFull: false}, sender, zerolog.Nop())
	defer func() {
		close(sender.gate)
		o.Close()
	}()

	o.Enqueue(context.Background(), Message{Template: "a"})
	o.Enqueue(context.Background(), Message{Template: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if o.Enqueue(ctx, Message{Template: "c"}) {
		t.Fatal("expected enqueue to give up when context expires")
	}
}

func TestOutboxNilSenderDiscards(t *testing.T) {
	o := New(Config{BufferSize: 1}, nil, zerolog.Nop())
	o.Enqueue(context.Background(), Message{Template: "t"})
	o.Close()
	if st := o.Stats(); st.Sent != 0 || st.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestOutboxEnqueueAfterCloseRejected(t *testing.T) {
	o := New(Config{BufferSize: 1}, &recordingSender{}, zerolog.Nop())
	o.Close()
	o.Close()
	if o.Enqueue(context.Background(), Message{Template: "t"}) {
		t.Fatal("expected enqueue after close to be rejected")
	}
}

func TestOutboxDeliversEveryMessageAcceptedDuringClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		sender := &recordingSender{}
		o := New(Config{BufferSize: 256, DropIfFull: true}, sender, zerolog.Nop())

		var accepted atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for n := 0; n < 16; n++ {
					if o.Enqueue(context.Background(), Message{Template: "t"}) {
						accepted.Add(1)
					}
				}
			}()
		}

		close(start)
		o.Close()
		wg.Wait()

		if got, want := sender.count(), int(accepted.Load()); got != want {
			t.Fatalf("iteration %d: delivered %d of %d accepted messages", i, got, want)
		}
		if st := o.Stats(); st.Dropped != 0 {
			t.Fatalf("iteration %d: unexpected drops: %+v", i, st)
		}
	}
}
