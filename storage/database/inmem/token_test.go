package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBlacklist(t *testing.T) {
	bl := NewTokenBlacklist()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	bl.nowFunc = func() time.Time { return now }

	require.NoError(t, bl.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, bl.Revoke(ctx, "jti-2", now.Add(time.Minute)))

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "jti-3", now.Add(time.Hour)))
	assert.Len(t, bl.revoked, 2)
}
