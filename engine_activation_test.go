package goCreds_test

import (
	"context"
	"sync"
	"testing"
	"time"

	goCreds "github.com/MrEthical07/goCreds"
)

func TestActivateMarksUserVerified(t *testing.T) {
	te := newTestEngine(t)
	res, raw := te.register(t, "alice@example.com")

	if err := te.Activate(context.Background(), raw); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if !te.user(t, res.User.ID).IsVerified {
		t.Fatal("expected user to be verified")
	}
	if n := te.store.TokenCount(goCreds.TokenVerification); n != 0 {
		t.Fatalf("expected token to be consumed, %d left", n)
	}
	if got := te.counter(goCreds.MetricActivationSuccess); got != 1 {
		t.Fatalf("expected one activation, got %d", got)
	}
}

func TestActivateTwiceFailsSecondCall(t *testing.T) {
	te := newTestEngine(t)
	_, raw := te.register(t, "bob@example.com")

	if err := te.Activate(context.Background(), raw); err != nil {
		t.Fatalf("first Activate failed: %v", err)
	}
	err := te.Activate(context.Background(), raw)
	assertErr(t, err, goCreds.ErrInvalidToken)
}

func TestActivateUnknownAndEmptyToken(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	assertErr(t, te.Activate(ctx, ""), goCreds.ErrInvalidToken)
	assertErr(t, te.Activate(ctx, "not-a-real-token"), goCreds.ErrInvalidToken)
	if got := te.counter(goCreds.MetricActivationFailure); got != 2 {
		t.Fatalf("expected two activation failures, got %d", got)
	}
}

func TestActivateExpiredToken(t *testing.T) {
	te := newTestEngine(t)
	res, raw := te.register(t, "carol@example.com")

	te.clock.Advance(testConfig().Tokens.TTL + time.Second)
	assertErr(t, te.Activate(context.Background(), raw), goCreds.ErrInvalidToken)
	if te.user(t, res.User.ID).IsVerified {
		t.Fatal("expired token must not verify")
	}
}

func TestActivateTokenKindsAreSeparate(t *testing.T) {
	te := newTestEngine(t)
	te.register(t, "dave@example.com")

	if err := te.RequestPasswordReset(context.Background(), "dave@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	reset := te.mailer.next(t)
	assertErr(t, te.Activate(context.Background(), reset.vars[goCreds.TemplateVarToken]), goCreds.ErrInvalidToken)
}

func TestResendActivation(t *testing.T) {
	te := newTestEngine(t)
	res, first := te.register(t, "erin@example.com")

	if err := te.ResendActivation(context.Background(), res.User.ID); err != nil {
		t.Fatalf("ResendActivation failed: %v", err)
	}
	second := te.mailer.next(t).vars[goCreds.TemplateVarToken]
	if second == first {
		t.Fatal("resend must issue a new token")
	}
	if err := te.Activate(context.Background(), second); err != nil {
		t.Fatalf("Activate with resent token failed: %v", err)
	}

	assertErr(t, te.ResendActivation(context.Background(), res.User.ID), goCreds.ErrAlreadyVerified)
	assertErr(t, te.Activate(context.Background(), first), goCreds.ErrAlreadyVerified)
	assertErr(t, te.ResendActivation(context.Background(), "missing"), goCreds.ErrUserNotFound)
}

func TestActivateConcurrentRedeemersVerifyOnce(t *testing.T) {
	te := newTestEngine(t)
	res, raw := te.register(t, "frank@example.com")

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- te.Activate(context.Background(), raw)
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
		}
	}
	if successes < 1 {
		t.Fatal("expected at least one successful activation")
	}
	if !te.user(t, res.User.ID).IsVerified {
		t.Fatal("expected user to be verified")
	}
	if n := te.store.TokenCount(goCreds.TokenVerification); n != 0 {
		t.Fatalf("expected token to be consumed, %d left", n)
	}
}
