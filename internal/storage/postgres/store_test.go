package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/storage"
)

// newTestStore 用 SQLite dialector 驱动同一套 GORM 查询，不依赖外部数据库
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "corpsite.db") + "?_busy_timeout=5000"
	s, err := NewStoreWithDialector(sqlite.Open(dsn), PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedContact(t *testing.T, s *Store, id string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, s.CreateContact(context.Background(), &domain.Message{
		ID:        id,
		FullName:  "Asha",
		Email:     "a@x.com",
		Subject:   "Hello " + id,
		Body:      "Question about pricing",
		CreatedAt: createdAt,
	}))
}

func TestStore_UpdateContactFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedContact(t, s, "m1", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	yes, no := true, false

	t.Run("只更新星标", func(t *testing.T) {
		updated, err := s.UpdateContactFlags(ctx, "m1", domain.FlagsUpdate{Starred: &yes})
		require.NoError(t, err)
		assert.True(t, updated.Starred)
		assert.False(t, updated.Read)

		got, err := s.GetContact(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, got.Starred)
		assert.False(t, got.Read)
	})

	t.Run("显式写入 false", func(t *testing.T) {
		updated, err := s.UpdateContactFlags(ctx, "m1", domain.FlagsUpdate{Starred: &no, Read: &yes})
		require.NoError(t, err)
		assert.False(t, updated.Starred)
		assert.True(t, updated.Read)

		got, err := s.GetContact(ctx, "m1")
		require.NoError(t, err)
		assert.False(t, got.Starred)
		assert.True(t, got.Read)
	})

	t.Run("空更新返回当前状态", func(t *testing.T) {
		updated, err := s.UpdateContactFlags(ctx, "m1", domain.FlagsUpdate{})
		require.NoError(t, err)
		assert.True(t, updated.Read)
		assert.False(t, updated.Starred)
		assert.Equal(t, "Hello m1", updated.Subject)
	})

	t.Run("来信不存在", func(t *testing.T) {
		_, err := s.UpdateContactFlags(ctx, "missing", domain.FlagsUpdate{Read: &yes})
		assert.ErrorIs(t, err, storage.ErrContactNotFound)
	})
}

func TestStore_DeleteContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedContact(t, s, "m1", base)
	seedContact(t, s, "m2", base.Add(time.Hour))

	for i, r := range []domain.ReplyRecord{
		{ID: "r1", ContactID: "m1", Kind: domain.ReplyKindReply, To: "a@x.com", Subject: "Re: Hello", SentBy: domain.DefaultSender},
		{ID: "r2", ContactID: "m1", Kind: domain.ReplyKindForward, To: "sales@corp.com", Subject: "Fwd: Hello", SentBy: domain.DefaultSender},
		{ID: "r3", ContactID: "m2", Kind: domain.ReplyKindReply, To: "a@x.com", Subject: "Re: Hello", SentBy: domain.DefaultSender},
	} {
		r.SentAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveReply(ctx, &r))
	}

	t.Run("连同出站记录一起删除", func(t *testing.T) {
		removed, err := s.DeleteContact(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		_, err = s.GetContact(ctx, "m1")
		assert.ErrorIs(t, err, storage.ErrContactNotFound)

		count, err := s.CountReplies(ctx, "m1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("不影响其他来信", func(t *testing.T) {
		got, err := s.GetContact(ctx, "m2")
		require.NoError(t, err)
		assert.Equal(t, "Hello m2", got.Subject)

		replies, err := s.ListReplies(ctx, "m2")
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Equal(t, "r3", replies[0].ID)
	})

	t.Run("重复删除返回不存在", func(t *testing.T) {
		_, err := s.DeleteContact(ctx, "m1")
		assert.ErrorIs(t, err, storage.ErrContactNotFound)
	})
}

func TestStore_ListOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		seedContact(t, s, id, base.Add(time.Duration(i)*time.Hour))
	}

	list, err := s.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, s.SaveReply(ctx, &domain.ReplyRecord{ID: "late", ContactID: "a", Kind: domain.ReplyKindReply, To: "a@x.com", SentAt: base.Add(2 * time.Minute)}))
	require.NoError(t, s.SaveReply(ctx, &domain.ReplyRecord{ID: "early", ContactID: "a", Kind: domain.ReplyKindReply, To: "a@x.com", SentAt: base.Add(time.Minute)}))

	replies, err := s.ListReplies(ctx, "a")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "early", replies[0].ID)
	assert.Equal(t, "late", replies[1].ID)

	require.NoError(t, s.Health())
}
