package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/storage"
)

// Store 使用内存保存来信与出站记录，主要用于开发验证和测试。
//
// 同时实现了限流计数与 JWT 黑名单，可单独作为 storage.EphemeralStore 使用。
type Store struct {
	mu       sync.RWMutex
	contacts map[string]*domain.Message
	replies  map[string][]*domain.ReplyRecord // contactID -> replies（按写入顺序）

	// 速率限制相关
	rateLimits        map[string]*rateLimitEntry
	rateLimitsCleanup time.Time // 下次清理过期速率限制的时间

	// JWT 黑名单 jti -> 过期时间
	blacklist map[string]time.Time

	now func() time.Time
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.EphemeralStore = (*Store)(nil)
)

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		contacts:          make(map[string]*domain.Message),
		replies:           make(map[string][]*domain.ReplyRecord),
		rateLimits:        make(map[string]*rateLimitEntry),
		rateLimitsCleanup: time.Now().Add(5 * time.Minute),
		blacklist:         make(map[string]time.Time),
		now:               time.Now,
	}
}

// ========== Contact Repository ==========

// CreateContact 保存来信
func (s *Store) CreateContact(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *msg
	s.contacts[msg.ID] = &copied
	return nil
}

// GetContact 根据 ID 获取来信
func (s *Store) GetContact(_ context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.contacts[id]
	if !ok {
		return nil, storage.ErrContactNotFound
	}
	copied := *msg
	return &copied, nil
}

// ListContacts 返回全部来信，最新的在前
func (s *Store) ListContacts(_ context.Context) ([]domain.Message, error) {
	s.mu.RLock()
	list := make([]domain.Message, 0, len(s.contacts))
	for _, msg := range s.contacts {
		list = append(list, *msg)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// UpdateContactFlags 部分更新已读/星标
func (s *Store) UpdateContactFlags(_ context.Context, id string, update domain.FlagsUpdate) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.contacts[id]
	if !ok {
		return nil, storage.ErrContactNotFound
	}
	update.Apply(msg)

	copied := *msg
	return &copied, nil
}

// DeleteContact 删除来信及其出站记录
func (s *Store) DeleteContact(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return 0, storage.ErrContactNotFound
	}

	removed := len(s.replies[id])
	delete(s.contacts, id)
	delete(s.replies, id)
	return removed, nil
}

// ========== Reply Repository ==========

// SaveReply 追加一条出站记录，不校验来信是否存在
func (s *Store) SaveReply(_ context.Context, reply *domain.ReplyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *reply
	s.replies[reply.ContactID] = append(s.replies[reply.ContactID], &copied)
	return nil
}

// ListReplies 按发送时间升序返回某封来信的出站记录
func (s *Store) ListReplies(_ context.Context, contactID string) ([]domain.ReplyRecord, error) {
	s.mu.RLock()
	list := make([]domain.ReplyRecord, 0, len(s.replies[contactID]))
	for _, r := range s.replies[contactID] {
		list = append(list, *r)
	}
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SentAt.Before(list[j].SentAt)
	})
	return list, nil
}

// CountReplies 统计某封来信的出站记录数量
func (s *Store) CountReplies(_ context.Context, contactID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.replies[contactID]), nil
}

// ========== JWT Repository ==========

// AddToBlacklist 将令牌加入黑名单，到期后自动失效
func (s *Store) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blacklist[jti] = s.now().Add(ttl)
	return nil
}

// IsBlacklisted 检查令牌是否在黑名单中
func (s *Store) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.blacklist[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.blacklist, jti)
		return false, nil
	}
	return true, nil
}

// ========== Rate Limit Repository ==========

// IncrementRateLimit 增加计数，窗口过期后从 1 重新开始
func (s *Store) IncrementRateLimit(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cleanupRateLimitsLocked(now)

	entry, ok := s.rateLimits[key]
	if !ok || !now.Before(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++
	return entry.Count, nil
}

// GetRateLimit 获取当前计数
func (s *Store) GetRateLimit(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rateLimits[key]
	if !ok || !s.now().Before(entry.ExpiresAt) {
		return 0, nil
	}
	return entry.Count, nil
}

// cleanupRateLimitsLocked 定期清理过期的限流条目，调用方需持有写锁
func (s *Store) cleanupRateLimitsLocked(now time.Time) {
	if now.Before(s.rateLimitsCleanup) {
		return
	}
	for key, entry := range s.rateLimits {
		if !now.Before(entry.ExpiresAt) {
			delete(s.rateLimits, key)
		}
	}
	for jti, expiresAt := range s.blacklist {
		if !now.Before(expiresAt) {
			delete(s.blacklist, jti)
		}
	}
	s.rateLimitsCleanup = now.Add(5 * time.Minute)
}

// ========== 工具方法 ==========

// Close 内存存储无需关闭
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终可用
func (s *Store) Health() error {
	return nil
}
