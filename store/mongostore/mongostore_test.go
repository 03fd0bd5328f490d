package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goCreds "github.com/MrEthical07/goCreds"
	"github.com/MrEthical07/goCreds/store/storetest"
)

func TestTokenIDSeparatesKinds(t *testing.T) {
	assert.NotEqual(t,
		tokenID(goCreds.TokenVerification, "h"),
		tokenID(goCreds.TokenForgotPassword, "h"),
	)
}

func TestUserDocPreservesTwoFactor(t *testing.T) {
	now := time.Now().UTC()
	u := &goCreds.User{
		ID:           "u-1",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		IsVerified:   true,
		TwoFactor:    goCreds.TwoFactor{TempSecret: "PENDING"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	got := newUserDoc(u).user()
	assert.Equal(t, u, got)
	assert.Equal(t, goCreds.TwoFactorPending, got.TwoFactor.State())
}

func liveStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	uri := os.Getenv("GOCREDS_MONGO_URI")
	if uri == "" {
		t.Skip("GOCREDS_MONGO_URI not set")
	}

	ctx := context.Background()
	name := "gocreds_test_" + uuid.NewString()[:8]
	s, client, err := Connect(ctx, uri, name, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Database(name).Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return s
}

func TestContract(t *testing.T) {
	s := liveStore(t)

	storetest.RunUserStore(t, s)
	storetest.RunTokenStore(t, s)
	storetest.RunConcurrentTokenDelete(t, s, 16)
	storetest.RunLoginAttemptStore(t, s)
}

func TestExpiredTokenHidden(t *testing.T) {
	now := time.Now().UTC()
	s := liveStore(t, WithTokenTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	tok := &goCreds.Token{UserID: "u-1", Hash: uuid.NewString(), CreatedAt: now.Add(-2 * time.Minute)}
	require.NoError(t, s.CreateToken(ctx, goCreds.TokenVerification, tok))

	_, err := s.FindTokenByHash(ctx, goCreds.TokenVerification, tok.Hash)
	assert.ErrorIs(t, err, goCreds.ErrRecordNotFound)

	n, err := s.DeleteExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
