package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"TG_rewards_bot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(FileConfig{
		UsersPath:     filepath.Join(dir, "users.json"),
		WithdrawsPath: filepath.Join(dir, "withdraws.json"),
	})
	require.NoError(t, err)
	return store
}

func TestFileStoreUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	user := &model.UserAccount{
		ID:            "42",
		Username:      "alice",
		FirstName:     "Alice",
		FirstSeen:     now,
		LastActive:    now,
		Points:        120,
		ReferredBy:    "7",
		ReferralCount: 3,
		LastClaimAt:   &now,
		ClaimStreak:   4,
		TaskClaims:    map[string]time.Time{"task_visit_site": now},
		JoinedChannels: []string{"@rewards_hub"},
		Active:        true,
	}
	require.NoError(t, store.SaveUser(ctx, user))

	// a fresh store over the same files must see the committed state
	reopened, err := NewFileStore(FileConfig{
		UsersPath:     store.usersPath,
		WithdrawsPath: store.withdrawsPath,
	})
	require.NoError(t, err)

	users, err := reopened.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	got := users["42"]
	require.NotNil(t, got)
	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, 120, got.Points)
	assert.Equal(t, "7", got.ReferredBy)
	assert.Equal(t, 3, got.ReferralCount)
	assert.Equal(t, 4, got.ClaimStreak)
	require.NotNil(t, got.LastClaimAt)
	assert.True(t, now.Equal(*got.LastClaimAt))
	assert.True(t, now.Equal(got.TaskClaims["task_visit_site"]))
	assert.True(t, got.HasJoined("@rewards_hub"))
}

func TestFileStoreWithdrawalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	created := time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC)
	req := &model.WithdrawRequest{
		ID:        "req-1",
		UserID:    "42",
		Method:    "PayPal",
		Account:   "me@example.com",
		Amount:    150,
		Status:    model.WithdrawPending,
		CreatedAt: created,
	}
	require.NoError(t, store.SaveWithdrawal(ctx, req))

	// saving the same id again must replace, not append
	processed := created.Add(time.Hour)
	req.Status = model.WithdrawApproved
	req.ProcessedAt = &processed
	require.NoError(t, store.SaveWithdrawal(ctx, req))

	reopened, err := NewFileStore(FileConfig{
		UsersPath:     store.usersPath,
		WithdrawsPath: store.withdrawsPath,
	})
	require.NoError(t, err)

	withdraws, err := reopened.LoadWithdrawals(ctx)
	require.NoError(t, err)
	require.Len(t, withdraws, 1)
	assert.Equal(t, model.WithdrawApproved, withdraws[0].Status)
	require.NotNil(t, withdraws[0].ProcessedAt)
	assert.True(t, processed.Equal(*withdraws[0].ProcessedAt))
}

func TestFileStoreMissingFilesLoadEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	users, err := store.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	withdraws, err := store.LoadWithdrawals(ctx)
	require.NoError(t, err)
	assert.Empty(t, withdraws)
}

func TestFileStoreCorruptFilesLoadEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, os.WriteFile(store.usersPath, []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(store.withdrawsPath, []byte("[truncated"), 0o644))

	users, err := store.LoadUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	withdraws, err := store.LoadWithdrawals(ctx)
	require.NoError(t, err)
	assert.Empty(t, withdraws)
}

func TestFileStoreSaveAfterCorruptLoadRecovers(t *testing.T) {
	ctx := context.Background()
	store := newTestFileStore(t)

	require.NoError(t, os.WriteFile(store.usersPath, []byte("garbage"), 0o644))
	_, err := store.LoadUsers(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SaveUser(ctx, &model.UserAccount{ID: "1", Points: 5, Active: true}))

	users, err := store.LoadUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 5, users["1"].Points)
}
