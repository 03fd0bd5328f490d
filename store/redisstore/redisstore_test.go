package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/store/memory"
	"github.com/MrEthical07/goCreds/store/storetest"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, opts...), mr
}

func TestStoreContract(t *testing.T) {
	s, _ := newTestStore(t)
	storetest.RunTokenStore(t, s)
	storetest.RunConcurrentTokenDelete(t, s, 16)
}

func TestTokensExpireInRedis(t *testing.T) {
	s, mr := newTestStore(t, WithTokenTTL(time.Minute), WithPrefix("test"))
	ctx := context.Background()

	tok := &goCreds.Token{UserID: "u1", Hash: "h1", CreatedAt: time.Now().UTC()}
	if err := s.CreateToken(ctx, goCreds.TokenVerification, tok); err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if !mr.Exists("test:verification:h1") {
		t.Fatalf("expected namespaced key, have %v", mr.Keys())
	}

	mr.FastForward(61 * time.Second)
	if _, err := s.FindTokenByHash(ctx, goCreds.TokenVerification, "h1"); !errors.Is(err, goCreds.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestComposedWithMemoryUsers(t *testing.T) {
	tokens, _ := newTestStore(t)
	users := memory.New()
	composed := goCreds.ComposeStore(users, tokens, users)

	engine, err := goCreds.New().WithConfig(testConfig()).WithStore(composed).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := context.Background()
	if _, err := engine.Register(ctx, "redis@example.com", "correct-horse"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if n := users.TokenCount(goCreds.TokenVerification); n != 0 {
		t.Fatalf("tokens must go to redis, memory holds %d", n)
	}
	if err := engine.RequestPasswordReset(ctx, "redis@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
}

func testConfig() goCreds.Config {
	cfg := goCreds.DefaultConfig()
	cfg.Session.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Tokens.HashSecret = []byte("fedcba9876543210fedcba9876543210")
	cfg.Password.BcryptCost = 4
	return cfg
}
