package domain

import (
	"sort"
	"time"
)

// ThreadDirection 会话条目方向
type ThreadDirection string

const (
	DirectionIncoming  ThreadDirection = "incoming"
	DirectionOutgoing  ThreadDirection = "outgoing"
	DirectionForwarded ThreadDirection = "forwarded"
)

// ThreadEntry 会话中的一条记录，来信或出站记录统一成同一形状。
type ThreadEntry struct {
	ID        string          `json:"id"`
	Type      ThreadDirection `json:"type"`
	From      string          `json:"from"`
	FromEmail string          `json:"fromEmail,omitempty"`
	To        string          `json:"to,omitempty"`
	Subject   string          `json:"subject"`
	Body      string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// DirectionFor 根据出站记录类型返回会话方向
func DirectionFor(kind ReplyKind) ThreadDirection {
	if kind == ReplyKindForward {
		return DirectionForwarded
	}
	return DirectionOutgoing
}

// BuildThread 把一条来信与它的出站记录合并为按时间排列的会话。
//
// 来信永远是第一条；出站记录按 SentAt 升序排列，时间相同的保持传入顺序。
// replies 不会被修改。
func BuildThread(msg *Message, replies []ReplyRecord) []ThreadEntry {
	thread := make([]ThreadEntry, 0, len(replies)+1)
	thread = append(thread, ThreadEntry{
		ID:        msg.ID,
		Type:      DirectionIncoming,
		From:      msg.FullName,
		FromEmail: msg.Email,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Timestamp: msg.CreatedAt,
	})

	sorted := make([]ReplyRecord, len(replies))
	copy(sorted, replies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SentAt.Before(sorted[j].SentAt)
	})

	for _, r := range sorted {
		from := r.SentBy
		if from == "" {
			from = DefaultSender
		}
		thread = append(thread, ThreadEntry{
			ID:        r.ID,
			Type:      DirectionFor(r.Kind),
			From:      from,
			To:        r.To,
			Subject:   r.Subject,
			Body:      r.Body,
			Timestamp: r.SentAt,
		})
	}

	return thread
}
