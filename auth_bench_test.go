package goCreds_test

import (
	"context"
	"testing"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/store/memory"
)

func newBenchmarkEngine(b *testing.B) *goCreds.Engine {
	b.Helper()

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	cfg.Audit.Enabled = false

	engine, err := goCreds.New().WithConfig(cfg).WithStore(memory.New()).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(engine.Close)

	if _, err := engine.Register(context.Background(), "alice@example.com", testPassword); err != nil {
		b.Fatalf("Register failed: %v", err)
	}
	return engine
}

func BenchmarkLogin(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Login(ctx, "alice@example.com", testPassword, ""); err != nil {
			b.Fatalf("login failed: %v", err)
		}
	}
}

func BenchmarkAuthenticate(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	res, err := engine.Login(ctx, "alice@example.com", testPassword, "")
	if err != nil {
		b.Fatalf("login failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(ctx, res.SessionToken); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkRequestPasswordReset(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
			b.Fatalf("request reset failed: %v", err)
		}
	}
}
