package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/missiv/internal/models"
)

// MivRepository handles miv persistence.
type MivRepository struct {
	db            *DB
	conversations *ConversationRepository
}

// NewMivRepository creates a new MivRepository.
func NewMivRepository(db *DB) *MivRepository {
	return &MivRepository{db: db, conversations: NewConversationRepository(db)}
}

const mivColumns = `id, conversation_id, seq_no, from_desk, to_desk, subject, body, is_encrypted, is_ack, is_forgotten, created_at, sent_at, received_at, read_at`

// Append inserts m as the next miv of its conversation inside tx. It assigns
// ID, SeqNo and timestamps, and bumps the conversation's miv_count and
// updated_at. The caller must hold tx for the whole read-modify-write so the
// seq_no is never handed out twice.
func (r *MivRepository) Append(ctx context.Context, tx *sql.Tx, m *models.Miv) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if m.ConversationID == "" {
		return fmt.Errorf("conversation id is required")
	}
	if m.From == m.To {
		return models.ErrInvalidRecipient
	}

	var seq int
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq_no), 0) + 1 FROM mivs WHERE conversation_id = ?
	`, m.ConversationID).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to assign seq_no: %w", err)
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if m.SentAt == nil {
		sent := m.CreatedAt
		m.SentAt = &sent
	}
	if m.ReceivedAt == nil {
		received := m.CreatedAt
		m.ReceivedAt = &received
	}
	if m.Body == nil {
		m.Body = []byte{}
	}
	m.SeqNo = seq
	m.ReadAt = nil
	m.IsForgotten = false

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mivs (`+mivColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, NULL)
	`,
		m.ID,
		m.ConversationID,
		m.SeqNo,
		m.From,
		m.To,
		m.Subject,
		m.Body,
		boolToInt(m.IsEncrypted),
		boolToInt(m.IsAck),
		formatTime(m.CreatedAt),
		formatTimePtr(m.SentAt),
		formatTimePtr(m.ReceivedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("conversation %s seq_no %d: %w", m.ConversationID, seq, ErrSeqConflict)
		}
		return fmt.Errorf("failed to insert miv: %w", err)
	}

	return r.conversations.Touch(ctx, tx, m.ConversationID, m.CreatedAt)
}

// Get retrieves a miv by ID.
func (r *MivRepository) Get(ctx context.Context, id string) (*models.Miv, error) {
	return r.get(ctx, r.db, id)
}

// GetTx retrieves a miv by ID inside tx.
func (r *MivRepository) GetTx(ctx context.Context, tx *sql.Tx, id string) (*models.Miv, error) {
	return r.get(ctx, tx, id)
}

func (r *MivRepository) get(ctx context.Context, q queryRower, id string) (*models.Miv, error) {
	row := q.QueryRowContext(ctx, `SELECT `+mivColumns+` FROM mivs WHERE id = ?`, id)
	return r.scanMiv(row)
}

// LatestTx returns the miv with the highest seq_no in a conversation.
func (r *MivRepository) LatestTx(ctx context.Context, tx *sql.Tx, conversationID string) (*models.Miv, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+mivColumns+` FROM mivs
		WHERE conversation_id = ?
		ORDER BY seq_no DESC
		LIMIT 1
	`, conversationID)
	return r.scanMiv(row)
}

// ListByConversation returns the mivs of a conversation in seq_no order.
func (r *MivRepository) ListByConversation(ctx context.Context, conversationID string) ([]*models.Miv, error) {
	return r.listByConversation(ctx, r.db, conversationID)
}

// ListByConversationTx is ListByConversation inside tx.
func (r *MivRepository) ListByConversationTx(ctx context.Context, tx *sql.Tx, conversationID string) ([]*models.Miv, error) {
	return r.listByConversation(ctx, tx, conversationID)
}

func (r *MivRepository) listByConversation(ctx context.Context, q querier, conversationID string) ([]*models.Miv, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+mivColumns+` FROM mivs
		WHERE conversation_id = ?
		ORDER BY seq_no
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mivs: %w", err)
	}
	return r.scanMivs(rows)
}

// ListByDesk returns every miv the desk sent or received.
func (r *MivRepository) ListByDesk(ctx context.Context, desk string) ([]*models.Miv, error) {
	return r.listByDesk(ctx, r.db, desk)
}

func (r *MivRepository) listByDesk(ctx context.Context, q querier, desk string) ([]*models.Miv, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+mivColumns+` FROM mivs
		WHERE from_desk = ? OR to_desk = ?
		ORDER BY conversation_id, seq_no
	`, desk, desk)
	if err != nil {
		return nil, fmt.Errorf("failed to query mivs: %w", err)
	}
	return r.scanMivs(rows)
}

// CountUnread counts mivs addressed to desk in a conversation that have not
// been read.
func (r *MivRepository) CountUnread(ctx context.Context, conversationID, desk string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mivs
		WHERE conversation_id = ? AND to_desk = ? AND read_at IS NULL
	`, conversationID, desk).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread mivs: %w", err)
	}
	return count, nil
}

// MarkRead sets read_at on a miv addressed to reader. It reports whether
// read_at changed; a second call is a no-op. A read by the sender is a
// no-op as well. Any other desk gets ErrNotParticipant.
func (r *MivRepository) MarkRead(ctx context.Context, tx *sql.Tx, mivID, reader string, at time.Time) (*models.Miv, bool, error) {
	m, err := r.GetTx(ctx, tx, mivID)
	if err != nil {
		return nil, false, err
	}

	switch reader {
	case m.To:
	case m.From:
		return m, false, nil
	default:
		return nil, false, models.ErrNotParticipant
	}

	readAt := at.UTC()
	result, err := tx.ExecContext(ctx, `
		UPDATE mivs SET read_at = ?
		WHERE id = ? AND to_desk = ? AND read_at IS NULL
	`, formatTime(readAt), mivID, reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to mark miv read: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return m, false, nil
	}

	m.ReadAt = &readAt
	return m, true, nil
}

// MarkReadForDesk marks every unread miv addressed to desk in a
// conversation as read and returns the ids that changed.
func (r *MivRepository) MarkReadForDesk(ctx context.Context, tx *sql.Tx, conversationID, desk string, at time.Time) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM mivs
		WHERE conversation_id = ? AND to_desk = ? AND read_at IS NULL
		ORDER BY seq_no
	`, conversationID, desk)
	if err != nil {
		return nil, fmt.Errorf("failed to query unread mivs: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan miv id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating unread mivs: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE mivs SET read_at = ?
		WHERE conversation_id = ? AND to_desk = ? AND read_at IS NULL
	`, formatTime(at), conversationID, desk)
	if err != nil {
		return nil, fmt.Errorf("failed to mark mivs read: %w", err)
	}
	return ids, nil
}

// MarkForgotten sets is_forgotten on a miv. Only the sender may forget a
// miv; anyone else gets ErrForbidden. It reports whether the flag changed.
func (r *MivRepository) MarkForgotten(ctx context.Context, tx *sql.Tx, mivID, requestor string) (*models.Miv, bool, error) {
	m, err := r.GetTx(ctx, tx, mivID)
	if err != nil {
		return nil, false, err
	}
	if requestor != m.From {
		return nil, false, models.ErrForbidden
	}
	if m.IsForgotten {
		return m, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE mivs SET is_forgotten = 1 WHERE id = ? AND is_forgotten = 0
	`, mivID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to forget miv: %w", err)
	}

	m.IsForgotten = true
	return m, true, nil
}

func (r *MivRepository) scanMivs(rows *sql.Rows) ([]*models.Miv, error) {
	defer rows.Close()

	var mivs []*models.Miv
	for rows.Next() {
		m, err := r.scanMiv(rows)
		if err != nil {
			return nil, err
		}
		mivs = append(mivs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mivs: %w", err)
	}
	return mivs, nil
}

func (r *MivRepository) scanMiv(scanner interface{ Scan(...any) error }) (*models.Miv, error) {
	var (
		m           models.Miv
		isEncrypted int
		isAck       int
		isForgotten int
		createdAt   string
		sentAt      sql.NullString
		receivedAt  sql.NullString
		readAt      sql.NullString
	)

	err := scanner.Scan(
		&m.ID,
		&m.ConversationID,
		&m.SeqNo,
		&m.From,
		&m.To,
		&m.Subject,
		&m.Body,
		&isEncrypted,
		&isAck,
		&isForgotten,
		&createdAt,
		&sentAt,
		&receivedAt,
		&readAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to scan miv: %w", err)
	}

	m.IsEncrypted = isEncrypted != 0
	m.IsAck = isAck != 0
	m.IsForgotten = isForgotten != 0
	m.CreatedAt = parseTime(createdAt)
	m.SentAt = parseTimePtr(sentAt)
	m.ReceivedAt = parseTimePtr(receivedAt)
	m.ReadAt = parseTimePtr(readAt)
	return &m, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
