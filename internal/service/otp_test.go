package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/pressbox/internal/kv/memory"
	"github.com/pressbox/pressbox/internal/testutil"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
	assert.Equal(t, "a@b.c", NormalizeEmail("a@b.c"))
}

func TestRateLimiter_AllowRequest_ArmsCooldown(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := memory.NewWithClock(func() time.Time { return now })
	rl := NewRateLimiter(store, testutil.MakeNoopLogger())

	decision, err := rl.AllowRequest(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = rl.AllowRequest(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.NextAttemptIn, time.Duration(0))
	assert.LessOrEqual(t, decision.NextAttemptIn, requestCooldown)

	now = now.Add(requestCooldown + time.Second)

	decision, err = rl.AllowRequest(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRateLimiter_AllowRequest_PerIdentity(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	decision, err := rl.AllowRequest(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = rl.AllowRequest(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRateLimiter_RecordFailure_BlocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	for i := 1; i < attemptThreshold; i++ {
		state, err := rl.RecordFailure(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(i), state.Attempts)
		assert.False(t, state.Blocked)
	}

	state, err := rl.RecordFailure(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, state.Blocked)
	assert.Equal(t, shortBlock, state.BlockExpiresIn)

	info, err := rl.Info(ctx, "user@example.com")
	require.NoError(t, err)
	assert.True(t, info.Blocked)
	assert.InDelta(t, shortBlock.Seconds(), info.BlockExpiresIn.Seconds(), 1)
}

func TestRateLimiter_RecordFailure_EscalatesToLongBlock(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	var state = struct {
		Blocked        bool
		BlockExpiresIn time.Duration
	}{}
	for i := 0; i <= escalationThreshold; i++ {
		s, err := rl.RecordFailure(ctx, "abuser@example.com")
		require.NoError(t, err)
		state.Blocked = s.Blocked
		state.BlockExpiresIn = s.BlockExpiresIn
	}

	assert.True(t, state.Blocked)
	assert.Equal(t, longBlock, state.BlockExpiresIn)
}

func TestRateLimiter_AttemptWindowNotExtendedOnLaterFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := memory.NewWithClock(func() time.Time { return now })
	rl := NewRateLimiter(store, testutil.MakeNoopLogger())

	_, err := rl.RecordFailure(ctx, "user@example.com")
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)

	_, err = rl.RecordFailure(ctx, "user@example.com")
	require.NoError(t, err)

	// The window was set on the first failure only: ~5 minutes remain.
	ttl, err := store.TTL(ctx, attemptsKey("user@example.com"))
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 5*time.Minute)
	assert.Greater(t, ttl, 4*time.Minute)
}

func TestRateLimiter_AttemptsExpireNaturally(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := memory.NewWithClock(func() time.Time { return now })
	rl := NewRateLimiter(store, testutil.MakeNoopLogger())

	for i := 0; i < attemptThreshold-1; i++ {
		_, err := rl.RecordFailure(ctx, "user@example.com")
		require.NoError(t, err)
	}

	now = now.Add(attemptWindow + time.Minute)

	state, err := rl.RecordFailure(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.Attempts)
	assert.False(t, state.Blocked)
}

func TestRateLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	for i := 0; i < attemptThreshold; i++ {
		_, err := rl.RecordFailure(ctx, "user@example.com")
		require.NoError(t, err)
	}

	require.NoError(t, rl.Reset(ctx, "user@example.com"))

	info, err := rl.Info(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Attempts)
	assert.False(t, info.Blocked)
}

func TestRateLimiter_Info_DoesNotMutate(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	for i := 0; i < 3; i++ {
		info, err := rl.Info(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(0), info.Attempts)
		assert.False(t, info.Blocked)
		assert.Equal(t, time.Duration(0), info.NextAttemptIn)
	}
}

func TestRateLimiter_VerifyCode(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	require.NoError(t, rl.StoreCode(ctx, "user@example.com", "123456"))

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{name: "correct code", candidate: "123456", want: true},
		{name: "wrong code same length", candidate: "654321", want: false},
		{name: "wrong code different length", candidate: "1234", want: false},
		{name: "empty candidate", candidate: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := rl.VerifyCode(ctx, "user@example.com", tt.candidate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRateLimiter_VerifyCode_AbsentFailsClosed(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	ok, err := rl.VerifyCode(ctx, "nobody@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_StoreCode_OverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	require.NoError(t, rl.StoreCode(ctx, "user@example.com", "111111"))
	require.NoError(t, rl.StoreCode(ctx, "user@example.com", "222222"))

	ok, err := rl.VerifyCode(ctx, "user@example.com", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.VerifyCode(ctx, "user@example.com", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_CodeExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := memory.NewWithClock(func() time.Time { return now })
	rl := NewRateLimiter(store, testutil.MakeNoopLogger())

	require.NoError(t, rl.StoreCode(ctx, "user@example.com", "123456"))

	now = now.Add(6 * time.Minute)

	ok, err := rl.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter_DeleteCode(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(memory.New(), testutil.MakeNoopLogger())

	require.NoError(t, rl.StoreCode(ctx, "user@example.com", "123456"))
	require.NoError(t, rl.DeleteCode(ctx, "user@example.com"))

	ok, err := rl.VerifyCode(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}
