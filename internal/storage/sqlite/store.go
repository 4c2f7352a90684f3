package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"corpsite/backend/internal/domain"
	"corpsite/backend/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	full_name  TEXT NOT NULL,
	email      TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	is_read    BOOLEAN NOT NULL DEFAULT 0,
	is_starred BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts(created_at);

CREATE TABLE IF NOT EXISTS replies (
	id         TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL,
	kind       TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	sent_by    TEXT NOT NULL DEFAULT 'Admin',
	sent_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_replies_contact_id ON replies(contact_id, sent_at);
`

// Store 单文件 SQLite 存储，适合单机部署
type Store struct {
	db *sqlx.DB
}

var _ storage.RecordStore = (*Store)(nil)

// NewStore 打开（必要时创建）指定路径的数据库文件
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite 同一时间只允许一个写入者
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db}, nil
}

// ========== Contact Repository ==========

// CreateContact 保存来信
func (s *Store) CreateContact(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO contacts (id, full_name, email, subject, body, is_read, is_starred, created_at)
		VALUES (:id, :full_name, :email, :subject, :body, :is_read, :is_starred, :created_at)`, msg)
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}

// GetContact 根据 ID 获取来信
func (s *Store) GetContact(ctx context.Context, id string) (*domain.Message, error) {
	return getContact(ctx, s.db, id)
}

func getContact(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Message, error) {
	msg := &domain.Message{}
	err := sqlx.GetContext(ctx, q, msg, `SELECT * FROM contacts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrContactNotFound
		}
		return nil, fmt.Errorf("fetching contact: %w", err)
	}
	return msg, nil
}

// ListContacts 返回全部来信，最新的在前
func (s *Store) ListContacts(ctx context.Context) ([]domain.Message, error) {
	list := []domain.Message{}
	err := s.db.SelectContext(ctx, &list, `SELECT * FROM contacts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return list, nil
}

// UpdateContactFlags 部分更新已读/星标
func (s *Store) UpdateContactFlags(ctx context.Context, id string, update domain.FlagsUpdate) (*domain.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	msg, err := getContact(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return msg, nil
	}

	update.Apply(msg)
	_, err = tx.ExecContext(ctx, `UPDATE contacts SET is_read = ?, is_starred = ? WHERE id = ?`, msg.Read, msg.Starred, id)
	if err != nil {
		return nil, fmt.Errorf("updating contact flags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	return msg, nil
}

// DeleteContact 在同一事务中删除来信及其出站记录
func (s *Store) DeleteContact(ctx context.Context, id string) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("deleting contact: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return 0, storage.ErrContactNotFound
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM replies WHERE contact_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("deleting replies: %w", err)
	}
	removed, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return int(removed), nil
}

// ========== Reply Repository ==========

// SaveReply 追加一条出站记录
func (s *Store) SaveReply(ctx context.Context, reply *domain.ReplyRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO replies (id, contact_id, kind, recipient, subject, body, sent_by, sent_at)
		VALUES (:id, :contact_id, :kind, :recipient, :subject, :body, :sent_by, :sent_at)`, reply)
	if err != nil {
		return fmt.Errorf("inserting reply: %w", err)
	}
	return nil
}

// ListReplies 按发送时间升序返回某封来信的出站记录
func (s *Store) ListReplies(ctx context.Context, contactID string) ([]domain.ReplyRecord, error) {
	list := []domain.ReplyRecord{}
	err := s.db.SelectContext(ctx, &list, `SELECT * FROM replies WHERE contact_id = ? ORDER BY sent_at ASC, rowid ASC`, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing replies: %w", err)
	}
	return list, nil
}

// CountReplies 统计某封来信的出站记录数量
func (s *Store) CountReplies(ctx context.Context, contactID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM replies WHERE contact_id = ?`, contactID); err != nil {
		return 0, fmt.Errorf("counting replies: %w", err)
	}
	return count, nil
}

// ========== 工具方法 ==========

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// Health 检查数据库连接
func (s *Store) Health() error {
	return s.db.Ping()
}
