package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/security"
	"corpsite/backend/internal/storage"
	"corpsite/backend/internal/storage/memory"
)

// MockNotifier 模拟邮件发送
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

// failingReplies 写入总是失败的出站记录存储
type failingReplies struct {
	storage.ReplyRepository
}

func (failingReplies) SaveReply(context.Context, *domain.ReplyRecord) error {
	return errors.New("connection refused")
}

func seedMessage(t *testing.T, store *memory.Store, id string, createdAt time.Time) *domain.Message {
	t.Helper()
	msg := &domain.Message{
		ID:        id,
		FullName:  "Asha",
		Email:     "a@x.com",
		Subject:   "Hello",
		Body:      "Hi there",
		CreatedAt: createdAt,
	}
	require.NoError(t, store.CreateContact(context.Background(), msg))
	return msg
}

func boolPtr(v bool) *bool { return &v }

func TestMessageService_List(t *testing.T) {
	store := memory.NewStore()
	svc := NewMessageService(store, store, nil)
	ctx := context.Background()

	t.Run("空列表不是 nil", func(t *testing.T) {
		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("按创建时间倒序", func(t *testing.T) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		seedMessage(t, store, "old", base)
		seedMessage(t, store, "new", base.Add(time.Hour))

		list, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "new", list[0].ID)
		assert.Equal(t, "old", list[1].ID)
	})
}

func TestMessageService_UpdateFlags(t *testing.T) {
	store := memory.NewStore()
	svc := NewMessageService(store, store, nil)
	ctx := context.Background()
	seedMessage(t, store, "m1", time.Now())

	t.Run("只更新提供的字段", func(t *testing.T) {
		msg, err := svc.UpdateFlags(ctx, "m1", domain.FlagsUpdate{Starred: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, msg.Starred)
		assert.False(t, msg.Read)

		msg, err = svc.UpdateFlags(ctx, "m1", domain.FlagsUpdate{Read: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, msg.Read)
		assert.True(t, msg.Starred)
	})

	t.Run("显式 false 生效", func(t *testing.T) {
		msg, err := svc.UpdateFlags(ctx, "m1", domain.FlagsUpdate{Starred: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, msg.Starred)
		assert.True(t, msg.Read)
	})

	t.Run("不存在返回 NotFound", func(t *testing.T) {
		_, err := svc.UpdateFlags(ctx, "missing", domain.FlagsUpdate{Read: boolPtr(true)})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMessageService_Delete(t *testing.T) {
	store := memory.NewStore()
	svc := NewMessageService(store, store, nil)
	ctx := context.Background()
	seedMessage(t, store, "m1", time.Now())
	require.NoError(t, store.SaveReply(ctx, &domain.ReplyRecord{
		ID: "r1", ContactID: "m1", Kind: domain.ReplyKindReply, To: "a@x.com", SentAt: time.Now(),
	}))

	require.NoError(t, svc.Delete(ctx, "m1"))

	_, err := svc.GetThread(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := store.CountReplies(ctx, "m1")
	require.NoError(t, err)
	assert.Zero(t, count, "出站记录应被级联删除")

	assert.ErrorIs(t, svc.Delete(ctx, "m1"), ErrNotFound)
}

func TestMessageService_GetThread(t *testing.T) {
	store := memory.NewStore()
	svc := NewMessageService(store, store, nil)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seedMessage(t, store, "m1", base)

	t.Run("没有回复时只有一条 incoming", func(t *testing.T) {
		thread, err := svc.GetThread(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, thread, 1)
		assert.Equal(t, domain.DirectionIncoming, thread[0].Type)
	})

	t.Run("回复按时间升序排在来信之后", func(t *testing.T) {
		require.NoError(t, store.SaveReply(ctx, &domain.ReplyRecord{
			ID: "r2", ContactID: "m1", Kind: domain.ReplyKindForward, To: "c@x.com", SentAt: base.Add(2 * time.Hour),
		}))
		require.NoError(t, store.SaveReply(ctx, &domain.ReplyRecord{
			ID: "r1", ContactID: "m1", Kind: domain.ReplyKindReply, To: "a@x.com", SentAt: base.Add(time.Hour),
		}))

		thread, err := svc.GetThread(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, thread, 3)
		assert.Equal(t, "m1", thread[0].ID)
		assert.Equal(t, "r1", thread[1].ID)
		assert.Equal(t, domain.DirectionOutgoing, thread[1].Type)
		assert.Equal(t, "r2", thread[2].ID)
		assert.Equal(t, domain.DirectionForwarded, thread[2].Type)
	})

	t.Run("不存在返回 NotFound", func(t *testing.T) {
		_, err := svc.GetThread(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReplyService_Reply(t *testing.T) {
	ctx := context.Background()

	t.Run("缺少字段返回 ValidationError 且不发信", func(t *testing.T) {
		store := memory.NewStore()
		notifier := new(MockNotifier)
		svc := NewReplyService(store, notifier, "Corp", nil)

		cases := []ReplyInput{
			{To: "b@x.com", Subject: "", Message: "body", ContactID: "m1"},
			{To: "", Subject: "Re", Message: "body", ContactID: "m1"},
			{To: "b@x.com", Subject: "Re", Message: "   ", ContactID: "m1"},
			{To: "not-an-email", Subject: "Re", Message: "body", ContactID: "m1"},
			{To: "b@x.com", Subject: "Hi\r\nBcc: evil@x.com", Message: "body", ContactID: "m1"},
			{To: "b@x.com", Subject: "Hi\nX-Injected: 1", Message: "body", ContactID: "m1"},
		}
		for _, input := range cases {
			err := svc.Reply(ctx, input)
			assert.ErrorIs(t, err, ErrValidation)
		}

		count, err := store.CountReplies(ctx, "m1")
		require.NoError(t, err)
		assert.Zero(t, count)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("发送成功后写入出站记录", func(t *testing.T) {
		store := memory.NewStore()
		seedMessage(t, store, "m1", time.Now())
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, "a@x.com", "Re: Hello", mock.MatchedBy(func(html string) bool {
			return strings.Contains(html, "Thanks for reaching out") && strings.Contains(html, "Hi Asha")
		})).Return(nil).Once()

		svc := NewReplyService(store, notifier, "Corp", nil)
		err := svc.Reply(ctx, ReplyInput{
			To:            "a@x.com",
			Subject:       "Re: Hello",
			Message:       "Thanks for reaching out",
			RecipientName: "Asha",
			ContactID:     "m1",
		})
		require.NoError(t, err)
		notifier.AssertExpectations(t)

		replies, err := store.ListReplies(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Equal(t, domain.ReplyKindReply, replies[0].Kind)
		assert.Equal(t, "a@x.com", replies[0].To)
		assert.Equal(t, "Thanks for reaching out", replies[0].Body)
		assert.Equal(t, domain.DefaultSender, replies[0].SentBy)
		assert.False(t, replies[0].SentAt.IsZero())

		msg, err := store.GetContact(ctx, "m1")
		require.NoError(t, err)
		assert.False(t, msg.Read, "回复不会修改已读标记")
	})

	t.Run("没有 contactId 时不写记录", func(t *testing.T) {
		store := memory.NewStore()
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, "b@x.com", "Hi", mock.Anything).Return(nil).Once()

		svc := NewReplyService(store, notifier, "Corp", nil)
		require.NoError(t, svc.Reply(ctx, ReplyInput{To: "b@x.com", Subject: "Hi", Message: "body"}))
		notifier.AssertExpectations(t)

		count, err := store.CountReplies(ctx, "")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("发送失败返回 SendError 且记录数不变", func(t *testing.T) {
		store := memory.NewStore()
		seedMessage(t, store, "m1", time.Now())
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp: 554 rejected"))

		svc := NewReplyService(store, notifier, "Corp", nil)
		err := svc.Reply(ctx, ReplyInput{To: "a@x.com", Subject: "Re", Message: "body", ContactID: "m1"})
		assert.ErrorIs(t, err, ErrSend)

		count, err := store.CountReplies(ctx, "m1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("记录写入失败返回 StoreError", func(t *testing.T) {
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		svc := NewReplyService(failingReplies{}, notifier, "Corp", nil)
		err := svc.Reply(ctx, ReplyInput{To: "a@x.com", Subject: "Re", Message: "body", ContactID: "m1"})
		assert.ErrorIs(t, err, ErrStore)
		assert.NotErrorIs(t, err, ErrSend)
		notifier.AssertExpectations(t)
	})
}

func TestReplyService_Forward(t *testing.T) {
	ctx := context.Background()

	t.Run("转发后会话多一条 forwarded", func(t *testing.T) {
		store := memory.NewStore()
		seedMessage(t, store, "m1", time.Now().Add(-time.Minute))
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, "b@x.com", "Fwd", mock.MatchedBy(func(html string) bool {
			return strings.Contains(html, "Forwarded message") && strings.Contains(html, "a@x.com")
		})).Return(nil).Once()

		replies := NewReplyService(store, notifier, "Corp", nil)
		messages := NewMessageService(store, store, nil)

		err := replies.Forward(ctx, ForwardInput{
			To:              "b@x.com",
			Subject:         "Fwd",
			OriginalMessage: "Hi",
			OriginalSender:  "Asha",
			OriginalEmail:   "a@x.com",
			ContactID:       "m1",
		})
		require.NoError(t, err)

		thread, err := messages.GetThread(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, thread, 2)
		assert.Equal(t, domain.DirectionForwarded, thread[1].Type)
		assert.Equal(t, "Forwarded from Asha", thread[1].Body)
		assert.Equal(t, "b@x.com", thread[1].To)
	})

	t.Run("带附言时记录附言", func(t *testing.T) {
		store := memory.NewStore()
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		svc := NewReplyService(store, notifier, "Corp", nil)
		require.NoError(t, svc.Forward(ctx, ForwardInput{
			To: "b@x.com", Subject: "Fwd", Message: "FYI", OriginalMessage: "Hi", OriginalSender: "Asha", ContactID: "m1",
		}))

		replies, err := store.ListReplies(ctx, "m1")
		require.NoError(t, err)
		require.Len(t, replies, 1)
		assert.Equal(t, "FYI", replies[0].Body)
		assert.Equal(t, domain.ReplyKindForward, replies[0].Kind)
	})

	t.Run("主题含换行返回 ValidationError", func(t *testing.T) {
		notifier := new(MockNotifier)
		svc := NewReplyService(memory.NewStore(), notifier, "Corp", nil)
		err := svc.Forward(ctx, ForwardInput{
			To: "b@x.com", Subject: "Fwd\r\nBcc: evil@x.com", OriginalMessage: "Hi", ContactID: "m1",
		})
		assert.ErrorIs(t, err, ErrValidation)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("没有附言和发件人时记录固定正文", func(t *testing.T) {
		tests := []struct {
			name  string
			input ForwardInput
			want  string
		}{
			{"使用原发件邮箱", ForwardInput{OriginalEmail: "a@x.com"}, "Forwarded from a@x.com"},
			{"都为空", ForwardInput{}, "Forwarded message"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := memory.NewStore()
				notifier := new(MockNotifier)
				notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

				input := tt.input
				input.To, input.Subject, input.OriginalMessage, input.ContactID = "b@x.com", "Fwd", "Hi", "m1"

				svc := NewReplyService(store, notifier, "Corp", nil)
				require.NoError(t, svc.Forward(ctx, input))

				replies, err := store.ListReplies(ctx, "m1")
				require.NoError(t, err)
				require.Len(t, replies, 1)
				assert.Equal(t, tt.want, replies[0].Body)
			})
		}
	})

	t.Run("缺少原文返回 ValidationError", func(t *testing.T) {
		notifier := new(MockNotifier)
		svc := NewReplyService(memory.NewStore(), notifier, "Corp", nil)
		err := svc.Forward(ctx, ForwardInput{To: "b@x.com", Subject: "Fwd", ContactID: "m1"})
		assert.ErrorIs(t, err, ErrValidation)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("发送失败不写记录", func(t *testing.T) {
		store := memory.NewStore()
		notifier := new(MockNotifier)
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout"))

		svc := NewReplyService(store, notifier, "Corp", nil)
		err := svc.Forward(ctx, ForwardInput{To: "b@x.com", Subject: "Fwd", OriginalMessage: "Hi", ContactID: "m1"})
		assert.ErrorIs(t, err, ErrSend)

		count, err := store.CountReplies(ctx, "m1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestContactService_Submit(t *testing.T) {
	store := memory.NewStore()
	svc := NewContactService(store, nil)
	ctx := context.Background()

	t.Run("保存来信并使用默认标记", func(t *testing.T) {
		msg, err := svc.Submit(ctx, ContactInput{FullName: " Asha ", Email: "a@x.com", Message: "Hi"})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "Asha", msg.FullName)
		assert.False(t, msg.Read)
		assert.False(t, msg.Starred)
		assert.False(t, msg.CreatedAt.IsZero())

		stored, err := store.GetContact(ctx, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hi", stored.Body)
	})

	t.Run("邮箱不校验格式", func(t *testing.T) {
		_, err := svc.Submit(ctx, ContactInput{FullName: "Bo", Email: "not-an-email"})
		assert.NoError(t, err)
	})

	t.Run("缺少必填字段", func(t *testing.T) {
		_, err := svc.Submit(ctx, ContactInput{FullName: "", Email: "a@x.com"})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.Submit(ctx, ContactInput{FullName: "Asha", Email: "  "})
		assert.ErrorIs(t, err, ErrValidation)
	})
	t.Run("内容过滤器拒绝垃圾内容", func(t *testing.T) {
		filtered := NewContactService(store, nil)
		filtered.SetContentFilter(security.NewContentFilter())

		_, err := filtered.Submit(ctx, ContactInput{FullName: "Spam", Email: "s@x.com", Message: "free money, click here, act now"})
		assert.ErrorIs(t, err, ErrValidation)

		msg, err := filtered.Submit(ctx, ContactInput{FullName: "Asha", Email: "a@x.com", Message: "Pilot request"})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
	})
}
